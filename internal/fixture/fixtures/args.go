package fixtures

import (
	"github.com/spf13/cast"

	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

// intArg 取第 idx 个位置参数并转换为 int。
func intArg(args []any, idx int) (int, error) {
	if idx >= len(args) {
		return 0, merr.WrapErrParameterMissing(idx, "positional argument")
	}
	v, err := cast.ToIntE(args[idx])
	if err != nil {
		return 0, merr.WrapErrParameterInvalidMsg("argument %d: %s", idx, err.Error())
	}
	return v, nil
}
