// Package proc 封装单次使用的子进程：启动、等待、截留 stderr 以及取消时清理整棵进程树。
package proc

import (
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/lk2023060901/xrt-go/pkg/log"
)

const defaultWaitDelay = 5 * time.Second

// Spec 描述一个待启动的子进程。
type Spec struct {
	Path string
	Args []string
	// Env 追加在当前进程环境变量之后，同名时以 Env 为准。
	Env []string
	// Dir 为空时继承当前工作目录。
	Dir string

	Stdin  io.Reader
	Stdout io.Writer
	// Stderr 为空时输出到当前进程的 stderr；无论如何都会截留最后 StderrTail 字节。
	Stderr     io.Writer
	StderrTail int

	// ExtraFiles 从 fd 3 开始依次传给子进程。
	ExtraFiles []*os.File

	// WaitDelay 为进程结束后等待 I/O 收尾的最长时间，0 表示使用默认值。
	WaitDelay time.Duration
}

// Process 是一个已启动的子进程。
type Process struct {
	cmd  *exec.Cmd
	tail *TailBuffer
}

// Start 启动子进程。ctx 结束时会终止子进程及其所有后代进程。
func Start(ctx context.Context, spec Spec) (*Process, error) {
	if spec.Path == "" {
		return nil, errors.New("proc: empty executable path")
	}
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.ExtraFiles = spec.ExtraFiles

	tail := NewTailBuffer(spec.StderrTail)
	stderr := spec.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	cmd.Stderr = io.MultiWriter(stderr, tail)

	cmd.Cancel = func() error {
		return KillTree(cmd.Process.Pid)
	}
	cmd.WaitDelay = spec.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "proc: start %s", spec.Path)
	}
	return &Process{cmd: cmd, tail: tail}, nil
}

// Pid 返回子进程 pid。
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait 阻塞直到子进程结束并返回结束状态。
func (p *Process) Wait() ExitStatus {
	err := p.cmd.Wait()
	status := StatusOf(p.cmd.ProcessState, err)
	if err != nil && !status.Success() {
		log.Debug("child process finished abnormally",
			zap.Int("pid", p.Pid()),
			zap.Stringer("status", status),
			zap.Error(err))
	}
	return status
}

// StderrTail 返回子进程 stderr 的尾部内容。
func (p *Process) StderrTail() string {
	return p.tail.String()
}

// Run 启动子进程并等待其结束。
// 返回的 error 只表示进程无法启动；进程本身的失败体现在 ExitStatus 中。
func Run(ctx context.Context, spec Spec) (ExitStatus, string, error) {
	p, err := Start(ctx, spec)
	if err != nil {
		return ExitStatus{}, "", err
	}
	status := p.Wait()
	return status, p.StderrTail(), nil
}

// KillTree 先终止 pid 的所有后代进程，再终止 pid 本身。
func KillTree(pid int) error {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	killDescendants(root)
	return root.Kill()
}

func killDescendants(p *process.Process) {
	children, err := p.Children()
	if err != nil {
		return
	}
	for _, child := range children {
		killDescendants(child)
		if err := child.Kill(); err != nil {
			log.Debug("kill descendant failed", zap.Int32("pid", child.Pid), zap.Error(err))
		}
	}
}
