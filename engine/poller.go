package engine

// 监听掩码.
const (
	maskRead  = uint32(1 << 0) // 可读
	maskWrite = uint32(1 << 1) // 可写
)

// directionMask 返回监听方向对应的掩码.
func directionMask(dir Direction) uint32 {
	switch dir {
	case DirRead:
		return maskRead
	case DirWrite:
		return maskWrite
	default:
		return 0
	}
}

// readyFunc 就绪事件处理函数. 返回错误时 poller 停止分发并返回该错误.
type readyFunc func(fd int, readable, writable bool) error

// poller 平台相关的 I/O 多路复用器.
type poller interface {
	// add 添加文件描述符.
	add(fd int, mask uint32) error

	// mod 修改文件描述符的监听掩码. 文件描述符未注册时重新添加.
	mod(fd int, mask uint32) error

	// del 移除文件描述符. 文件描述符已关闭或未注册时不视为错误.
	del(fd int) error

	// wait 等待至多 timeoutMs 毫秒, 并对每个就绪的文件描述符调用 fn.
	wait(timeoutMs int, fn readyFunc) error

	// wake 唤醒正在进行的 wait. 可在任意 goroutine 调用.
	wake() error

	// close 关闭 poller.
	close() error
}
