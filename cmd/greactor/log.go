package main

import (
	"time"

	"github.com/godyy/greactor"
	"go.uber.org/zap"
)

func lfdError(err error) zap.Field {
	return zap.NamedError("error", err)
}

func lfdPath(path string) zap.Field {
	return zap.String("path", path)
}

func lfdHeartbeat(d time.Duration) zap.Field {
	return zap.Duration("heartbeat", d)
}

func lfdWatchers(n int) zap.Field {
	return zap.Int("watchers", n)
}

func lfdWatcherId(id greactor.WatcherId) zap.Field {
	return zap.Uint64("watcherId", id)
}

func lfdInput(b []byte) zap.Field {
	return zap.ByteString("input", b)
}
