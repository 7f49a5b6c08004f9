package main

import (
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/godyy/glog"
	"github.com/godyy/greactor"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/multierr"
)

// daemon 示例守护进程. 除信号与文件通知的转发 goroutine 外, 所有逻辑运行在 Reactor 中.
type daemon struct {
	path        string             // 配置文件路径.
	cfg         *Config            // 当前配置.
	reactor     *greactor.Reactor  // 事件反应器.
	logger      glog.Logger        // 日志工具.
	heartbeatId greactor.WatcherId // 心跳定时器.
	stdinId     greactor.WatcherId // 标准输入监听器.
	notifyR     *os.File           // 配置变更通知管道读端.
	notifyW     *os.File           // 配置变更通知管道写端.
	fsWatcher   *fsnotify.Watcher  // 配置文件监听.
}

// newDaemon 构造 daemon.
func newDaemon(path string, cfg *Config, logger glog.Logger) (*daemon, error) {
	r, err := greactor.NewReactor(&cfg.Reactor, greactor.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &daemon{
		path:    filepath.Clean(path),
		cfg:     cfg,
		reactor: r,
		logger:  logger.Named("daemon"),
	}, nil
}

// run 注册监听器并运行 Reactor, 直至收到退出信号.
func (d *daemon) run() error {
	defer d.close()

	if err := d.scheduleHeartbeat(); err != nil {
		return err
	}

	// 标准输入可能不支持 epoll (如重定向自普通文件), 此时仅跳过回显.
	if id, err := d.reactor.OnReadable(os.Stdin, d.onStdin); err != nil {
		d.logger.WarnFields("stdin not watched", lfdError(err))
	} else {
		d.stdinId = id
	}

	if err := d.watchConfig(); err != nil {
		return err
	}

	chSignal := make(chan os.Signal, 1)
	chDone := make(chan struct{})
	signal.Notify(chSignal, syscall.SIGINT, syscall.SIGTERM)
	defer func() {
		signal.Stop(chSignal)
		close(chDone)
	}()
	go func() {
		select {
		case <-chSignal:
			d.reactor.Stop()
		case <-chDone:
		}
	}()

	d.logger.InfoFields("started", lfdPath(d.path), lfdHeartbeat(d.cfg.Heartbeat))

	return d.reactor.Run()
}

// scheduleHeartbeat 按当前配置注册心跳定时器.
func (d *daemon) scheduleHeartbeat() error {
	id, err := d.reactor.Schedule(d.onHeartbeat, d.cfg.Heartbeat)
	if err != nil {
		return pkgerrors.WithMessage(err, "schedule heartbeat")
	}
	d.heartbeatId = id
	return nil
}

// onHeartbeat 心跳.
func (d *daemon) onHeartbeat() error {
	d.logger.InfoFields("heartbeat", lfdWatchers(d.reactor.Watchers()))
	return nil
}

// onStdin 回显标准输入. 读到 EOF 后注销监听器.
func (d *daemon) onStdin() error {
	buf := make([]byte, 4096)
	n, err := os.Stdin.Read(buf)
	if n > 0 {
		d.logger.InfoFields("stdin", lfdInput(buf[:n]))
	}
	if err == io.EOF {
		d.logger.Info("stdin closed")
		d.reactor.Cancel(d.stdinId)
		return nil
	}
	return err
}

// watchConfig 监听配置文件变更.
// fsnotify 的事件经由管道转发, 由 Reactor 在事件循环中处理.
func (d *daemon) watchConfig() error {
	r, w, err := os.Pipe()
	if err != nil {
		return pkgerrors.WithMessage(err, "create notify pipe")
	}
	d.notifyR, d.notifyW = r, w

	if _, err := d.reactor.OnReadable(d.notifyR, d.onConfigChanged); err != nil {
		return err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return pkgerrors.WithMessage(err, "create fsnotify watcher")
	}
	d.fsWatcher = fsWatcher

	// 监听所在目录, 兼容编辑器以重命名方式保存文件.
	if err := fsWatcher.Add(filepath.Dir(d.path)); err != nil {
		return pkgerrors.WithMessage(err, "watch config dir")
	}

	go d.forwardConfigEvents(fsWatcher)

	return nil
}

// forwardConfigEvents 将配置文件的变更事件写入通知管道.
func (d *daemon) forwardConfigEvents(fsWatcher *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != d.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if _, err := d.notifyW.Write([]byte{1}); err != nil {
				d.logger.WarnFields("notify config changed", lfdError(err))
				return
			}
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			d.logger.WarnFields("fsnotify", lfdError(err))
		}
	}
}

// onConfigChanged 重新加载配置. 心跳间隔变化时重新注册心跳定时器.
// 加载失败时保留原配置.
func (d *daemon) onConfigChanged() error {
	buf := make([]byte, 64)
	if _, err := d.notifyR.Read(buf); err != nil {
		return pkgerrors.WithMessage(err, "read notify pipe")
	}

	cfg, err := loadConfig(d.path)
	if err != nil {
		d.logger.WarnFields("reload config", lfdPath(d.path), lfdError(err))
		return nil
	}

	if cfg.Heartbeat == d.cfg.Heartbeat {
		return nil
	}

	d.reactor.Cancel(d.heartbeatId)
	d.cfg.Heartbeat = cfg.Heartbeat
	if err := d.scheduleHeartbeat(); err != nil {
		return err
	}

	d.logger.InfoFields("heartbeat rescheduled", lfdHeartbeat(d.cfg.Heartbeat), lfdWatcherId(d.heartbeatId))

	return nil
}

// close 释放资源.
func (d *daemon) close() {
	var err error
	if d.fsWatcher != nil {
		err = multierr.Append(err, d.fsWatcher.Close())
	}
	err = multierr.Append(err, d.reactor.Close())
	if d.notifyW != nil {
		err = multierr.Append(err, d.notifyW.Close())
	}
	if d.notifyR != nil {
		err = multierr.Append(err, d.notifyR.Close())
	}
	if err != nil {
		d.logger.WarnFields("close", lfdError(err))
	}
}
