package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameRole      = "role"
	FieldNameFixture   = "fixture"
)

// FieldModule returns a zap field with the module name.
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent returns a zap field with the component name.
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldRole returns a zap field naming the process role (parent, worker, program).
func FieldRole(role string) zap.Field {
	return zap.String(FieldNameRole, role)
}

// FieldFixture returns a zap field with the qualified fixture name.
func FieldFixture(ref string) zap.Field {
	return zap.String(FieldNameFixture, ref)
}
