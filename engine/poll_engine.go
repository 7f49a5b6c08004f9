package engine

import (
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/godyy/glog"
	pkgerrors "github.com/pkg/errors"
)

// EngineConfig PollEngine 配置.
type EngineConfig struct {
	// MaxEvents 单轮最多获取的就绪事件数.
	MaxEvents int `yaml:"maxEvents"`
}

func (c *EngineConfig) init() error {
	if c == nil {
		return errors.New("EngineConfig nil")
	}

	if c.MaxEvents <= 0 {
		return errors.New("EngineConfig.MaxEvents must > 0")
	}

	return nil
}

// ioWatcher PollEngine I/O 监听器.
type ioWatcher struct {
	e        *PollEngine // 所属 Engine.
	fd       int         // 文件描述符.
	dir      Direction   // 监听方向.
	cb       Callback    // 回调函数.
	active   bool        // 是否活跃.
	released bool        // 是否已释放.
}

// Start 实现 Handle.
func (w *ioWatcher) Start() error {
	if w.released {
		return ErrHandleReleased
	}
	if w.active {
		return nil
	}
	w.active = true
	if err := w.e.updateFd(w.fd); err != nil {
		w.active = false
		return err
	}
	return nil
}

// Stop 实现 Handle.
func (w *ioWatcher) Stop() error {
	if w.released {
		return ErrHandleReleased
	}
	if !w.active {
		return nil
	}
	w.active = false
	return w.e.updateFd(w.fd)
}

// IsActive 实现 Handle.
func (w *ioWatcher) IsActive() bool {
	return w.active
}

// Release 实现 Handle.
func (w *ioWatcher) Release() error {
	if w.released {
		return nil
	}
	err := w.Stop()
	w.released = true
	w.e.detach(w)
	return err
}

// fdWatchers 同一文件描述符上的 I/O 监听器集合.
type fdWatchers struct {
	fd       int          // 文件描述符.
	mask     uint32       // 已注册到 poller 的监听掩码.
	watchers []*ioWatcher // 监听器.
}

// activeMask 返回活跃监听器的掩码并集.
func (fw *fdWatchers) activeMask() uint32 {
	var mask uint32
	for _, w := range fw.watchers {
		if w.active {
			mask |= directionMask(w.dir)
		}
	}
	return mask
}

// PollEngine 基于平台 poller 与最小堆定时器的 Engine 实现.
// 除 Halt 外, 所有方法及句柄操作只能在事件循环 goroutine 中调用.
type PollEngine struct {
	cfg      *EngineConfig       // 配置.
	poller   poller              // I/O 多路复用器.
	timers   *timerHeap          // 定时器.
	fds      map[int]*fdWatchers // 文件描述符监听表.
	timerSeq uint64              // 定时器序号生成自增键.
	epoch    time.Time           // 单调时钟起点.
	closed   atomic.Bool         // 是否已关闭.
	logger   glog.Logger         // 日志工具.
}

// NewPollEngine 构造 PollEngine.
func NewPollEngine(cfg *EngineConfig, options ...Option) (*PollEngine, error) {
	if err := cfg.init(); err != nil {
		return nil, err
	}

	p, err := newPoller(cfg.MaxEvents)
	if err != nil {
		return nil, err
	}

	e := &PollEngine{
		cfg:    cfg,
		poller: p,
		timers: newTimerHeap(),
		fds:    make(map[int]*fdWatchers),
		epoch:  time.Now(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.logger == nil {
		e.logger = createStdLogger(glog.InfoLevel)
	}

	return e, nil
}

// now 返回单调时钟时间.
func (e *PollEngine) now() int64 {
	return int64(time.Since(e.epoch))
}

// Timer 实现 Engine.
func (e *PollEngine) Timer(delay, interval time.Duration, cb Callback) (Handle, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	if delay < 0 || interval < 0 {
		return nil, ErrInvalidDuration
	}

	if cb == nil {
		return nil, ErrNilCallback
	}

	e.timerSeq++
	t := &timerWatcher{
		e:         e,
		seq:       e.timerSeq,
		heapIndex: -1,
		delay:     delay,
		interval:  interval,
		cb:        cb,
	}
	e.timers.arm(t, e.now()+int64(delay))

	return t, nil
}

// IO 实现 Engine.
func (e *PollEngine) IO(s Stream, dir Direction, cb Callback) (Handle, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	if directionMask(dir) == 0 {
		return nil, ErrInvalidDirection
	}

	if cb == nil {
		return nil, ErrNilCallback
	}

	fd, err := streamFd(s)
	if err != nil {
		return nil, err
	}

	fw, ok := e.fds[fd]
	if !ok {
		fw = &fdWatchers{fd: fd}
		e.fds[fd] = fw
	}

	w := &ioWatcher{
		e:      e,
		fd:     fd,
		dir:    dir,
		cb:     cb,
		active: true,
	}
	fw.watchers = append(fw.watchers, w)

	// 文件描述符可能在未注销监听器时被关闭并复用, 此时需重新注册到 poller.
	if err := e.syncFd(fd, true); err != nil {
		w.active = false
		w.released = true
		e.detach(w)
		e.logger.WarnFields("watch fd failed", lfdFd(fd), lfdDirection(dir), lfdError(err))
		return nil, err
	}

	e.logger.DebugFields("watch fd", lfdFd(fd), lfdDirection(dir))

	return w, nil
}

// updateFd 按活跃监听器同步文件描述符在 poller 中的注册状态.
func (e *PollEngine) updateFd(fd int) error {
	return e.syncFd(fd, false)
}

// syncFd 同步文件描述符在 poller 中的注册状态.
// force 为 true 时即使掩码未变化也重新提交.
func (e *PollEngine) syncFd(fd int, force bool) error {
	fw, ok := e.fds[fd]
	if !ok {
		return nil
	}

	mask := fw.activeMask()
	if mask == fw.mask && (!force || mask == 0) {
		return nil
	}

	var err error
	switch {
	case fw.mask == 0:
		err = e.poller.add(fd, mask)
	case mask == 0:
		err = e.poller.del(fd)
	default:
		err = e.poller.mod(fd, mask)
	}
	if err != nil {
		return err
	}

	fw.mask = mask
	return nil
}

// detach 将监听器从文件描述符监听表中移除.
func (e *PollEngine) detach(w *ioWatcher) {
	fw, ok := e.fds[w.fd]
	if !ok {
		return
	}

	for i, ww := range fw.watchers {
		if ww == w {
			fw.watchers = append(fw.watchers[:i], fw.watchers[i+1:]...)
			break
		}
	}

	if len(fw.watchers) == 0 {
		if fw.mask != 0 {
			if err := e.poller.del(fw.fd); err != nil {
				e.logger.WarnFields("unwatch fd failed", lfdFd(fw.fd), lfdError(err))
			}
		}
		delete(e.fds, w.fd)
		e.logger.DebugFields("unwatch fd", lfdFd(w.fd))
	}
}

// waitTimeout 计算本轮等待时间 (毫秒). 不超过 wait, 也不超过最近定时器的到期时间.
func (e *PollEngine) waitTimeout(wait time.Duration) int {
	if wait <= 0 {
		return 0
	}

	if expireAt, ok := e.timers.nextExpireAt(); ok {
		d := time.Duration(expireAt - e.now())
		if d < 0 {
			d = 0
		}
		if d < wait {
			wait = d
		}
	}

	ms := (wait + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		ms = math.MaxInt32
	}
	return int(ms)
}

// RunOnce 实现 Engine.
// 先分发就绪的 I/O 监听器, 再分发本轮开始分发定时器时已到期的定时器.
func (e *PollEngine) RunOnce(wait time.Duration) error {
	if e.closed.Load() {
		return ErrClosed
	}

	if err := e.poller.wait(e.waitTimeout(wait), e.dispatchIO); err != nil {
		return err
	}

	return e.timers.dispatch(e.timers.collect(e.now()))
}

// dispatchIO 分发文件描述符上的就绪事件.
func (e *PollEngine) dispatchIO(fd int, readable, writable bool) error {
	fw, ok := e.fds[fd]
	if !ok {
		return nil
	}

	// 回调中可能增删监听器.
	watchers := make([]*ioWatcher, len(fw.watchers))
	copy(watchers, fw.watchers)

	for _, w := range watchers {
		if !w.active {
			continue
		}
		if (w.dir == DirRead && readable) || (w.dir == DirWrite && writable) {
			if err := w.cb(w); err != nil {
				return err
			}
		}
	}

	return nil
}

// Halt 实现 Engine.
func (e *PollEngine) Halt() {
	if e.closed.Load() {
		return
	}
	if err := e.poller.wake(); err != nil {
		e.logger.WarnFields("halt wait failed", lfdError(err))
	}
}

// Close 实现 Engine. 所有句柄变为已释放状态.
func (e *PollEngine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}

	e.timers.clear()
	for _, fw := range e.fds {
		for _, w := range fw.watchers {
			w.active = false
			w.released = true
		}
	}
	e.fds = nil

	if err := e.poller.close(); err != nil {
		return pkgerrors.WithMessage(err, "close poller")
	}

	e.logger.Info("closed")

	return nil
}
