package greactor

import (
	"github.com/godyy/glog"
	"github.com/godyy/greactor/engine"
)

// Option Reactor 选项.
type Option func(*Reactor)

// WithLogger 日志工具选项.
func WithLogger(logger glog.Logger) Option {
	return func(r *Reactor) {
		r.rootLogger = logger
	}
}

// WithEngine 指定 Engine. 由调用方负责关闭.
func WithEngine(e engine.Engine) Option {
	return func(r *Reactor) {
		r.engine = e
	}
}
