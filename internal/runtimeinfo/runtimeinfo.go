// Package runtimeinfo 描述当前进程所代表的运行时身份（版本号与实现名）。
package runtimeinfo

import (
	"os"
	"runtime"
	"strings"

	"github.com/blang/semver/v4"

	"github.com/lk2023060901/xrt-go/internal/envelope"
	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

// EnvRuntimeVersion 可在运行时覆盖构建时写入的版本号，
// 以便同一个二进制扮演不同版本的运行时。
const EnvRuntimeVersion = "XRT_RUNTIME_VERSION"

// Version 在构建时通过 -ldflags "-X .../runtimeinfo.Version=x.y.z" 写入。
var Version = "1.2.0"

// Parse 解析版本号并生成对应的 origin tag，允许省略 patch 与前缀 v。
func Parse(version string) (envelope.OriginTag, error) {
	v, err := semver.ParseTolerant(strings.TrimSpace(version))
	if err != nil {
		return envelope.OriginTag{}, merr.WrapErrParameterInvalidMsg("invalid runtime version %q: %s", version, err.Error())
	}
	return envelope.OriginTag{
		Major:   int(v.Major),
		Minor:   int(v.Minor),
		Runtime: runtime.Compiler,
	}, nil
}

// Current 返回当前进程的 origin tag。
// 环境变量中的版本号无法解析时退回到构建版本。
func Current() envelope.OriginTag {
	if v := os.Getenv(EnvRuntimeVersion); v != "" {
		if tag, err := Parse(v); err == nil {
			return tag
		}
	}
	tag, err := Parse(Version)
	if err != nil {
		return envelope.OriginTag{Major: 0, Minor: 0, Runtime: runtime.Compiler}
	}
	return tag
}
