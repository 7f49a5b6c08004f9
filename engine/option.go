package engine

import "github.com/godyy/glog"

// Option PollEngine 选项.
type Option func(*PollEngine)

// WithLogger 日志工具选项.
func WithLogger(logger glog.Logger) Option {
	return func(e *PollEngine) {
		e.logger = logger.Named("engine")
	}
}
