package greactor

import (
	"errors"
	"fmt"
)

// ErrRunning Reactor 正在运行.
var ErrRunning = errors.New("reactor running")

// ErrClosed Reactor 已关闭.
var ErrClosed = errors.New("reactor closed")

// ErrNilCallback 回调函数为空.
var ErrNilCallback = errors.New("callback nil")

// ErrInvalidDelay 延迟时间非法.
var ErrInvalidDelay = errors.New("delay must >= 0")

// ErrInvalidInterval 间隔时间非法.
var ErrInvalidInterval = errors.New("interval must > 0")

// CallbackError 用户回调失败. 由 Run/Tick 返回.
type CallbackError struct {
	Id   WatcherId   // 监听器ID.
	Kind WatcherKind // 监听器类型.
	Err  error       // 回调返回的错误.
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("watcher %d (%s) callback: %v", e.Id, e.Kind, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// Cause 兼容 github.com/pkg/errors.
func (e *CallbackError) Cause() error {
	return e.Err
}
