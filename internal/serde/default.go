package serde

// Default 是进程级默认 Registry，fixture 与 wrapper 在 init 中向其注册。
var Default = NewRegistry()

// Register 向 Default 注册类型。
func Register(name string, prototype any) error {
	return Default.Register(name, prototype)
}

// MustRegister 向 Default 注册类型，失败时 panic。
func MustRegister(name string, prototype any) {
	Default.MustRegister(name, prototype)
}
