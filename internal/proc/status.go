package proc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// ExitStatus 描述子进程的结束状态。
// 进程退出码为 0 且不是被信号终止时，才视为成功。
type ExitStatus struct {
	// Code 为退出码；被信号终止时为 128+信号值。
	Code int `json:"code"`
	// Signal 为终止进程的信号名，正常退出时为空。
	Signal string `json:"signal,omitempty"`
}

// Success 判断进程是否正常结束。
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == ""
}

func (s ExitStatus) String() string {
	if s.Signal != "" {
		return fmt.Sprintf("exit %d (signal: %s)", s.Code, s.Signal)
	}
	return fmt.Sprintf("exit %d", s.Code)
}

// StatusOf 根据 Wait 的结果计算 ExitStatus。
func StatusOf(state *os.ProcessState, waitErr error) ExitStatus {
	if state != nil {
		if ws, ok := state.Sys().(syscall.WaitStatus); ok {
			return statusFromWait(ws)
		}
		return ExitStatus{Code: state.ExitCode()}
	}
	if waitErr == nil {
		return ExitStatus{}
	}
	return ExitStatus{Code: exitCodeForError(waitErr)}
}

func statusFromWait(ws syscall.WaitStatus) ExitStatus {
	switch {
	case ws.Exited():
		return ExitStatus{Code: ws.ExitStatus()}
	case ws.Signaled():
		return ExitStatus{Code: 128 + int(ws.Signal()), Signal: ws.Signal().String()}
	default:
		return ExitStatus{Code: 1}
	}
}

func exitCodeForError(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Exited() {
			return status.ExitStatus()
		}
	}
	return 1
}
