package greactor

import (
	"github.com/godyy/greactor/engine"
	pkgerrors "github.com/pkg/errors"
)

// supervise 执行用户回调.
// 回调返回错误或 panic 时停止 Reactor, 并以 *CallbackError 返回.
// 不注销任何监听器, 也不释放任何句柄.
func (r *Reactor) supervise(w *watcher) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = pkgerrors.Errorf("panic: %v", p)
		}
		if err == nil {
			return
		}
		r.logger.ErrorFields("callback failed", lfdWatcherId(w.id), lfdWatcherKind(w.kind), lfdError(err))
		r.Stop()
		err = &CallbackError{Id: w.id, Kind: w.kind, Err: err}
	}()

	return w.cb()
}

// registered 返回监听器是否仍在注册表中.
func (w *watcher) registered() bool {
	cur, ok := w.reactor.watchers.lookup(w.id)
	return ok && cur == w
}

// fireOnce 一次性定时器回调. 成功后注销自身.
func (w *watcher) fireOnce(engine.Handle) error {
	if err := w.reactor.supervise(w); err != nil {
		return err
	}

	if w.registered() {
		w.reactor.cancel(w)
	}

	return nil
}

// fireRepeating 重复定时器回调. 成功后重新计时.
// 回调中注销或暂停了自身时不再计时.
func (w *watcher) fireRepeating(h engine.Handle) error {
	if err := w.reactor.supervise(w); err != nil {
		return err
	}

	if !w.registered() || w.disabled {
		return nil
	}

	if err := h.Start(); err != nil {
		w.reactor.logger.ErrorFields("restart timer failed", lfdWatcherId(w.id), lfdError(err))
	}

	return nil
}

// fireIO I/O 监听器回调.
func (w *watcher) fireIO(engine.Handle) error {
	return w.reactor.supervise(w)
}
