//go:build linux

package engine

import (
	"encoding/binary"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// epollPoller 基于 epoll(7) 的水平触发 poller. 使用 eventfd 实现唤醒.
type epollPoller struct {
	epfd   int               // epoll 文件描述符.
	wakeFd int               // 唤醒用 eventfd.
	events []unix.EpollEvent // 事件缓冲区.
}

// newPoller 构造 epollPoller.
func newPoller(maxEvents int) (poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "epoll create")
	}

	wakeFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, pkgerrors.WithMessage(err, "eventfd create")
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakeFd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, &ev); err != nil {
		_ = unix.Close(wakeFd)
		_ = unix.Close(epfd)
		return nil, pkgerrors.WithMessage(err, "epoll ctl add eventfd")
	}

	return &epollPoller{
		epfd:   epfd,
		wakeFd: wakeFd,
		events: make([]unix.EpollEvent, maxEvents),
	}, nil
}

// epollEvents 将监听掩码转换为 epoll 事件.
func epollEvents(mask uint32) uint32 {
	var events uint32
	if mask&maskRead != 0 {
		events |= unix.EPOLLIN
	}
	if mask&maskWrite != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func (p *epollPoller) add(fd int, mask uint32) error {
	ev := unix.EpollEvent{Events: epollEvents(mask), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return pkgerrors.WithMessage(err, "epoll ctl add")
	}
	return nil
}

func (p *epollPoller) mod(fd int, mask uint32) error {
	ev := unix.EpollEvent{Events: epollEvents(mask), Fd: int32(fd)}
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	if errors.Is(err, unix.ENOENT) {
		// 文件描述符关闭后 epoll 自动移除了注册.
		return p.add(fd, mask)
	}
	if err != nil {
		return pkgerrors.WithMessage(err, "epoll ctl mod")
	}
	return nil
}

func (p *epollPoller) del(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == nil || errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENOENT) {
		return nil
	}
	return pkgerrors.WithMessage(err, "epoll ctl del")
}

func (p *epollPoller) wait(timeoutMs int, fn readyFunc) error {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMs)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		return pkgerrors.WithMessage(err, "epoll wait")
	}
	if n <= 0 {
		return nil
	}

	// 回调中可能再次进入 wait, 复制本轮事件.
	ready := make([]unix.EpollEvent, n)
	copy(ready, p.events[:n])

	for i := range ready {
		fd := int(ready[i].Fd)
		if fd == p.wakeFd {
			p.drain()
			continue
		}

		events := ready[i].Events
		broken := events&(unix.EPOLLERR|unix.EPOLLHUP) != 0
		readable := broken || events&unix.EPOLLIN != 0
		writable := broken || events&unix.EPOLLOUT != 0
		if err := fn(fd, readable, writable); err != nil {
			return err
		}
	}

	return nil
}

func (p *epollPoller) wake() error {
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], 1)
	if _, err := unix.Write(p.wakeFd, b[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		return pkgerrors.WithMessage(err, "eventfd write")
	}
	return nil
}

// drain 清空 eventfd 计数.
func (p *epollPoller) drain() {
	var b [8]byte
	_, _ = unix.Read(p.wakeFd, b[:])
}

func (p *epollPoller) close() error {
	return multierr.Append(
		pkgerrors.WithMessage(unix.Close(p.wakeFd), "close eventfd"),
		pkgerrors.WithMessage(unix.Close(p.epfd), "close epoll"),
	)
}
