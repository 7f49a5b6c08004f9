package engine

import "time"

// Direction I/O 监听方向.
type Direction int8

// 监听方向枚举值.
const (
	DirRead  = Direction(1) // 可读
	DirWrite = Direction(2) // 可写
)

// directionStrings 监听方向字符串值.
var directionStrings = map[Direction]string{
	DirRead:  "Read",
	DirWrite: "Write",
}

func (d Direction) String() string {
	if s, ok := directionStrings[d]; ok {
		return s
	}
	return "Unknown"
}

// Callback 事件回调函数.
// 返回非空错误时, Engine 放弃本轮剩余的事件分发, 并将错误返回给 RunOnce 的调用方.
type Callback func(h Handle) error

// Handle Engine 中单个监听器的句柄.
type Handle interface {
	// Start 启动监听器. 已处于活跃状态时无任何效果.
	Start() error

	// Stop 停止监听器. 已处于非活跃状态时无任何效果.
	Stop() error

	// IsActive 返回监听器是否处于活跃状态.
	IsActive() bool

	// Release 停止并释放监听器, 之后不可再启动.
	Release() error
}

// Engine 提供定时器与 I/O 就绪通知的底层事件引擎.
type Engine interface {
	// Timer 创建并启动定时器. delay 后首次触发; 触发前定时器变为非活跃,
	// 再次 Start 时以 interval (interval 为 0 时为 delay) 重新计时.
	Timer(delay, interval time.Duration, cb Callback) (Handle, error)

	// IO 创建并启动 I/O 监听器.
	IO(s Stream, dir Direction, cb Callback) (Handle, error)

	// RunOnce 执行一轮事件分发. wait 为本轮最长等待时间, 0 表示不等待.
	RunOnce(wait time.Duration) error

	// Halt 使正在进行或即将进行的等待立即返回. 可在任意 goroutine 调用.
	Halt()

	// Close 关闭 Engine.
	Close() error
}
