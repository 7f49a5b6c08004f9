package greactor

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/godyy/glog"
	"github.com/godyy/greactor/engine"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ReactorConfig Reactor 配置.
type ReactorConfig struct {
	// PollTimeout Run 每轮等待事件的最长时间.
	// 0 表示每轮都不等待, Run 在空闲时忙轮询.
	PollTimeout time.Duration `yaml:"pollTimeout"`

	// Engine 未通过 WithEngine 指定 Engine 时, 构造 PollEngine 所使用的配置.
	Engine engine.EngineConfig `yaml:"engine"`
}

func (c *ReactorConfig) init() error {
	if c == nil {
		return errors.New("ReactorConfig nil")
	}

	if c.PollTimeout < 0 {
		return errors.New("ReactorConfig.PollTimeout must >= 0")
	}

	return nil
}

// Reactor 单线程事件反应器.
// 在 Engine 之上注册定时器与 I/O 就绪回调, 通过 Run/Tick/Stop 驱动.
// 除 Stop 与 IsRunning 外, 所有方法只能在运行事件循环的 goroutine 中调用.
type Reactor struct {
	cfg        *ReactorConfig   // 配置.
	engine     engine.Engine    // 事件引擎.
	ownEngine  bool             // Engine 是否由 Reactor 创建.
	idGen      watcherIdGen     // 监听器ID生成器.
	watchers   *watcherRegistry // 监听器注册表.
	running    atomic.Bool      // 是否正在运行.
	closed     bool             // 是否已关闭.
	rootLogger glog.Logger      // 根日志工具.
	logger     glog.Logger      // 日志工具.
}

// NewReactor 构造 Reactor.
func NewReactor(cfg *ReactorConfig, options ...Option) (*Reactor, error) {
	if err := cfg.init(); err != nil {
		return nil, err
	}

	r := &Reactor{
		cfg:      cfg,
		watchers: newWatcherRegistry(),
	}

	// 选项.
	for _, opt := range options {
		opt(r)
	}

	// 初始化日志工具.
	r.initLogger()

	// 未指定 Engine 时使用 PollEngine.
	if r.engine == nil {
		e, err := engine.NewPollEngine(&cfg.Engine, engine.WithLogger(r.rootLogger))
		if err != nil {
			return nil, pkgerrors.WithMessage(err, "create poll engine")
		}
		r.engine = e
		r.ownEngine = true
	}

	return r, nil
}

// initLogger 初始化日志工具.
func (r *Reactor) initLogger() {
	if r.rootLogger == nil {
		r.rootLogger = createStdLogger(glog.InfoLevel)
	}
	r.logger = r.rootLogger.Named("greactor")
}

// Run 运行事件循环, 直到 Stop 被调用或回调失败.
// 回调失败时返回 *CallbackError. 返回前 Reactor 已处于停止状态.
func (r *Reactor) Run() error {
	if r.closed {
		return ErrClosed
	}

	if !r.running.CompareAndSwap(false, true) {
		return ErrRunning
	}

	r.logger.InfoFields("running", lfdPollTimeout(r.cfg.PollTimeout), lfdWatchers(r.watchers.len()))

	for r.running.Load() {
		if err := r.engine.RunOnce(r.cfg.PollTimeout); err != nil {
			r.running.Store(false)
			// 回调失败已由 supervise 记录.
			var cbErr *CallbackError
			if !errors.As(err, &cbErr) {
				err = pkgerrors.WithMessage(err, "engine run once")
				r.logger.WarnFields("stopped", lfdError(err))
			}
			return err
		}
	}

	r.logger.Info("stopped")

	return nil
}

// Tick 执行一轮非阻塞的事件分发.
func (r *Reactor) Tick() error {
	if r.closed {
		return ErrClosed
	}
	return r.engine.RunOnce(0)
}

// Stop 停止事件循环, 并使 Engine 中正在进行的等待立即返回.
// 可在任意 goroutine 调用.
func (r *Reactor) Stop() {
	r.running.Store(false)
	r.engine.Halt()
}

// IsRunning 返回 Reactor 是否正在运行.
func (r *Reactor) IsRunning() bool {
	return r.running.Load()
}

// Watchers 返回已注册的监听器数量.
func (r *Reactor) Watchers() int {
	return r.watchers.len()
}

// newWatcher 检查参数并分配监听器ID.
func (r *Reactor) newWatcher(kind WatcherKind, cb Callback) (*watcher, error) {
	if r.closed {
		return nil, ErrClosed
	}

	if cb == nil {
		return nil, ErrNilCallback
	}

	return &watcher{
		reactor: r,
		id:      r.idGen.next(),
		kind:    kind,
		cb:      cb,
	}, nil
}

// register 将监听器加入注册表.
func (r *Reactor) register(w *watcher, h engine.Handle) WatcherId {
	w.handle = h
	r.watchers.insert(w)
	r.logger.DebugFields("watcher registered", lfdWatcherId(w.id), lfdWatcherKind(w.kind))
	return w.id
}

// Immediately 注册在下一轮事件分发中执行一次的回调.
func (r *Reactor) Immediately(cb Callback) (WatcherId, error) {
	return r.Once(cb, 0)
}

// Once 注册 delay 后执行一次的回调. 回调成功返回后, 监听器自动注销.
func (r *Reactor) Once(cb Callback, delay time.Duration) (WatcherId, error) {
	if delay < 0 {
		return WatcherIdNone, ErrInvalidDelay
	}

	w, err := r.newWatcher(KindOneShot, cb)
	if err != nil {
		return WatcherIdNone, err
	}

	h, err := r.engine.Timer(delay, 0, w.fireOnce)
	if err != nil {
		r.logger.ErrorFields("create timer failed", lfdWatcherId(w.id), lfdDelay(delay), lfdError(err))
		return WatcherIdNone, pkgerrors.WithMessage(err, "create timer")
	}

	return r.register(w, h), nil
}

// Schedule 注册每隔 interval 执行的回调.
// 下一次计时在上一次回调返回后才开始, 两次回调不会重叠.
func (r *Reactor) Schedule(cb Callback, interval time.Duration) (WatcherId, error) {
	if interval <= 0 {
		return WatcherIdNone, ErrInvalidInterval
	}

	w, err := r.newWatcher(KindRepeating, cb)
	if err != nil {
		return WatcherIdNone, err
	}

	h, err := r.engine.Timer(interval, interval, w.fireRepeating)
	if err != nil {
		r.logger.ErrorFields("create timer failed", lfdWatcherId(w.id), lfdInterval(interval), lfdError(err))
		return WatcherIdNone, pkgerrors.WithMessage(err, "create timer")
	}

	return r.register(w, h), nil
}

// OnReadable 注册 s 可读时执行的回调. 监听器持续有效, 直至被 Cancel.
func (r *Reactor) OnReadable(s engine.Stream, cb Callback) (WatcherId, error) {
	return r.watchStream(s, KindIoRead, engine.DirRead, cb)
}

// OnWritable 注册 s 可写时执行的回调. 监听器持续有效, 直至被 Cancel.
func (r *Reactor) OnWritable(s engine.Stream, cb Callback) (WatcherId, error) {
	return r.watchStream(s, KindIoWrite, engine.DirWrite, cb)
}

// watchStream 注册 I/O 监听器.
func (r *Reactor) watchStream(s engine.Stream, kind WatcherKind, dir engine.Direction, cb Callback) (WatcherId, error) {
	w, err := r.newWatcher(kind, cb)
	if err != nil {
		return WatcherIdNone, err
	}

	h, err := r.engine.IO(s, dir, w.fireIO)
	if err != nil {
		r.logger.ErrorFields("watch stream failed", lfdWatcherId(w.id), lfdWatcherKind(kind), lfdError(err))
		return WatcherIdNone, pkgerrors.WithMessage(err, "watch stream")
	}

	return r.register(w, h), nil
}

// Cancel 注销监听器并释放其 Engine 句柄. id 不存在时无任何效果.
func (r *Reactor) Cancel(id WatcherId) {
	w, ok := r.watchers.lookup(id)
	if !ok {
		return
	}
	r.cancel(w)
}

// cancel 注销监听器.
func (r *Reactor) cancel(w *watcher) {
	r.watchers.remove(w.id)
	if err := w.handle.Release(); err != nil {
		r.logger.WarnFields("release watcher", lfdWatcherId(w.id), lfdWatcherKind(w.kind), lfdError(err))
	}
	r.logger.DebugFields("watcher canceled", lfdWatcherId(w.id), lfdWatcherKind(w.kind))
}

// Disable 暂停监听器. id 不存在或监听器已暂停时无任何效果.
func (r *Reactor) Disable(id WatcherId) {
	w, ok := r.watchers.lookup(id)
	if !ok {
		return
	}

	w.disabled = true
	if !w.handle.IsActive() {
		return
	}

	if err := w.handle.Stop(); err != nil {
		r.logger.WarnFields("disable watcher", lfdWatcherId(w.id), lfdWatcherKind(w.kind), lfdError(err))
	}
}

// Enable 恢复监听器. id 不存在或监听器已活跃时无任何效果.
func (r *Reactor) Enable(id WatcherId) {
	w, ok := r.watchers.lookup(id)
	if !ok {
		return
	}

	w.disabled = false
	if w.handle.IsActive() {
		return
	}

	if err := w.handle.Start(); err != nil {
		r.logger.WarnFields("enable watcher", lfdWatcherId(w.id), lfdWatcherKind(w.kind), lfdError(err))
	}
}

// Close 注销全部监听器并释放句柄. Engine 由 Reactor 创建时一并关闭.
// 运行中不可关闭.
func (r *Reactor) Close() error {
	if r.running.Load() {
		return ErrRunning
	}

	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	for _, w := range r.watchers.drain() {
		err = multierr.Append(err, w.handle.Release())
	}

	if r.ownEngine {
		err = multierr.Append(err, r.engine.Close())
	}

	r.logger.Info("closed")

	return err
}
