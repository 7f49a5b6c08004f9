//go:build linux

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/godyy/glog"
	"github.com/stretchr/testify/require"
)

const testConfig = `
logLevel: warn
heartbeat: %s
reactor:
  pollTimeout: 5ms
  engine:
    maxEvents: 16
`

func writeTestConfig(t *testing.T, path, heartbeat string) {
	data := []byte(fmt.Sprintf(testConfig, heartbeat))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestDaemonReloadHeartbeat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greactor.yaml")
	writeTestConfig(t, path, "1h")

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	logger := glog.NewLogger(&glog.Config{
		Level:        glog.WarnLevel,
		EnableCaller: true,
		CallerSkip:   0,
		Development:  true,
		Cores:        []glog.CoreConfig{glog.NewStdCoreConfig()},
	})

	d, err := newDaemon(path, cfg, logger)
	require.NoError(t, err)
	defer d.close()

	require.NoError(t, d.scheduleHeartbeat())
	require.NoError(t, d.watchConfig())
	oldId := d.heartbeatId

	writeTestConfig(t, path, "2h")
	_, err = d.notifyW.Write([]byte{1})
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for d.heartbeatId == oldId && time.Now().Before(deadline) {
		require.NoError(t, d.reactor.Tick())
		time.Sleep(time.Millisecond)
	}

	require.NotEqual(t, oldId, d.heartbeatId)
	require.Equal(t, 2*time.Hour, d.cfg.Heartbeat)
	// 心跳定时器与通知管道监听器.
	require.Equal(t, 2, d.reactor.Watchers())
}
