package engine

import "errors"

// ErrNotSupported 当前平台不支持.
var ErrNotSupported = errors.New("engine: platform not supported")

// ErrClosed Engine 已关闭.
var ErrClosed = errors.New("engine: closed")

// ErrHandleReleased 句柄已释放.
var ErrHandleReleased = errors.New("engine: handle released")

// ErrInvalidStream 无法从 Stream 获取文件描述符.
var ErrInvalidStream = errors.New("engine: invalid stream")

// ErrInvalidDirection 非法的监听方向.
var ErrInvalidDirection = errors.New("engine: invalid direction")

// ErrInvalidDuration 非法的时间参数.
var ErrInvalidDuration = errors.New("engine: invalid duration")

// ErrNilCallback 回调函数为空.
var ErrNilCallback = errors.New("engine: callback nil")
