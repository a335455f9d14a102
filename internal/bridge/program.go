package bridge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/template"

	"go.uber.org/zap"

	"github.com/lk2023060901/xrt-go/internal/envelope"
	"github.com/lk2023060901/xrt-go/internal/fixture"
	"github.com/lk2023060901/xrt-go/internal/runtimeinfo"
	"github.com/lk2023060901/xrt-go/pkg/log"
	"github.com/lk2023060901/xrt-go/pkg/util/merr"
	"github.com/lk2023060901/xrt-go/pkg/util/viper"
)

// RoleProgram 为执行桥接程序的运行时角色。
const RoleProgram = "program"

// programTemplate 为发给另一个运行时的声明式程序。
// 字符串统一使用双引号形式，避免路径中的特殊字符破坏 YAML。
var programTemplate = template.Must(template.New("program").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(`# generated by xrt bridge, removed by the runtime after loading
fixture:
  module: {{ quote .Fixture.Module }}
  symbol: {{ quote .Fixture.Symbol }}
handoff: {{ quote .Handoff }}
dump_code: {{ .DumpCode }}
unlink: {{ .Unlink }}
`))

// Program 为桥接程序的内容。
type Program struct {
	Fixture  fixture.Ref `mapstructure:"fixture"`
	Handoff  string      `mapstructure:"handoff"`
	DumpCode bool        `mapstructure:"dump_code"`
	// Unlink 为 true 时运行时加载程序后立即删除程序文件。
	Unlink bool `mapstructure:"unlink"`
}

// Render 生成程序文本。
func (p Program) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := programTemplate.Execute(&buf, p); err != nil {
		return nil, merr.WrapErrServiceInternal("render program", err.Error())
	}
	return buf.Bytes(), nil
}

// LoadProgram 读取并校验程序文件。
func LoadProgram(path string) (Program, error) {
	cfg := viper.New("")
	if err := cfg.LoadFile(path); err != nil {
		return Program{}, merr.WrapErrProgramInvalid(path, err.Error())
	}
	var p Program
	if err := cfg.Unmarshal(&p); err != nil {
		return Program{}, merr.WrapErrProgramInvalid(path, err.Error())
	}
	if p.Fixture.Module == "" || p.Fixture.Symbol == "" {
		return Program{}, merr.WrapErrProgramInvalid(path, "fixture module and symbol are required")
	}
	if p.Handoff == "" {
		return Program{}, merr.WrapErrProgramInvalid(path, "handoff path is required")
	}
	return p, nil
}

// RunProgram 在当前运行时执行桥接程序：解析 fixture，以本运行时的 origin tag
// 打包其结果，并写入交接文件。
func RunProgram(ctx context.Context, path string) error {
	p, err := LoadProgram(path)
	if err != nil {
		return err
	}
	if p.Unlink {
		if err := os.Remove(path); err != nil {
			log.Ctx(ctx).Debug("remove program failed", zap.String("path", path), zap.Error(err))
		}
	}

	origin := runtimeinfo.Current()
	logger := log.Ctx(ctx).With(log.FieldFixture(p.Fixture.String()), zap.Stringer("origin", origin))

	v, err := fixture.Produce(p.Fixture)
	if err != nil {
		return err
	}
	text, err := envelope.NewCodec(nil).Seal(v, origin, p.DumpCode)
	if err != nil {
		return err
	}
	if err := writeHandoff(p.Handoff, []byte(text)); err != nil {
		return err
	}
	logger.Debug("handoff written", zap.String("handoff", p.Handoff), zap.Int("bytes", len(text)))
	return nil
}

// writeHandoff 先写临时文件再改名，读方不会看到写了一半的内容。
func writeHandoff(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return merr.WrapErrIoFailed(path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return merr.WrapErrIoFailed(path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return merr.WrapErrIoFailed(path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return merr.WrapErrIoFailed(path, err)
	}
	return nil
}

// ProgramMain 是程序角色的入口，args 为程序文件路径，返回值为进程退出码。
func ProgramMain(ctx context.Context, args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "xrt program: expected exactly one program file, got %d arguments\n", len(args))
		return 2
	}
	ctx = log.WithRole(log.WithInheritedTraceID(ctx), RoleProgram)
	if err := RunProgram(ctx, args[0]); err != nil {
		log.Ctx(ctx).Error("program failed", zap.String("program", args[0]), zap.Error(err))
		fmt.Fprintf(os.Stderr, "xrt program: %v\n", err)
		return 1
	}
	return 0
}
