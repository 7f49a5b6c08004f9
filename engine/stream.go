package engine

import (
	"syscall"

	pkgerrors "github.com/pkg/errors"
)

// Stream 可被监听的 I/O 对象.
// 支持 syscall.Conn (net.Conn, *os.File 等), 实现 Fd() uintptr 的对象, 以及 int 文件描述符.
// 关闭 Stream 前应释放其上的句柄, 否则旧句柄会随文件描述符的复用收到新对象的就绪事件.
type Stream any

// streamFd 获取 Stream 的文件描述符.
// 优先使用 syscall.Conn, 避免 (*os.File).Fd 将文件切换为阻塞模式.
func streamFd(s Stream) (int, error) {
	switch v := s.(type) {
	case int:
		if v < 0 {
			return -1, ErrInvalidStream
		}
		return v, nil
	case syscall.Conn:
		rc, err := v.SyscallConn()
		if err != nil {
			return -1, pkgerrors.WithMessage(err, "syscall conn")
		}
		fd := -1
		if err := rc.Control(func(rawFd uintptr) { fd = int(rawFd) }); err != nil {
			return -1, pkgerrors.WithMessage(err, "raw conn control")
		}
		if fd < 0 {
			return -1, ErrInvalidStream
		}
		return fd, nil
	case interface{ Fd() uintptr }:
		return int(v.Fd()), nil
	default:
		return -1, ErrInvalidStream
	}
}
