// xrt-runtime 是验证工具的运行时入口。
//
// 环境变量 XRT_ROLE=worker 时作为隔离 worker 处理一个请求；
// 否则以唯一的位置参数作为桥接程序文件执行。
package main

import (
	"context"
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/lk2023060901/xrt-go/application"
	"github.com/lk2023060901/xrt-go/internal/executor"
	_ "github.com/lk2023060901/xrt-go/internal/fixture/fixtures"
	"github.com/lk2023060901/xrt-go/pkg/log"
)

func main() {
	ctx := context.Background()
	if executor.IsWorker() {
		os.Exit(executor.WorkerMain(ctx))
	}

	app := application.New()
	if err := app.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "xrt-runtime: %v\n", err)
		os.Exit(2)
	}
	code := app.RunProgram(ctx)
	_ = log.Sync()
	os.Exit(code)
}
