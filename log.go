package greactor

import (
	"time"

	"github.com/godyy/glog"
	"go.uber.org/zap"
)

// createStdLogger 创建面向标准输出的 logger.
func createStdLogger(level glog.Level) glog.Logger {
	return glog.NewLogger(&glog.Config{
		Level:        level,
		EnableCaller: true,
		CallerSkip:   0,
		Development:  true,
		Cores:        []glog.CoreConfig{glog.NewStdCoreConfig()},
	})
}

func lfdError(err error) zap.Field {
	return zap.NamedError("error", err)
}

func lfdWatcherId(id WatcherId) zap.Field {
	return zap.Uint64("watcherId", id)
}

func lfdWatcherKind(kind WatcherKind) zap.Field {
	return zap.Stringer("watcherKind", kind)
}

func lfdDelay(delay time.Duration) zap.Field {
	return zap.Duration("delay", delay)
}

func lfdInterval(interval time.Duration) zap.Field {
	return zap.Duration("interval", interval)
}

func lfdPollTimeout(timeout time.Duration) zap.Field {
	return zap.Duration("pollTimeout", timeout)
}

func lfdWatchers(n int) zap.Field {
	return zap.Int("watchers", n)
}
