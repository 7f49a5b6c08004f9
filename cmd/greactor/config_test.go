package main

import (
	"testing"
	"time"

	"github.com/godyy/glog"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig(t *testing.T) {
	cfg, err := decodeConfig([]byte(`
logLevel: warn
heartbeat: 2s
reactor:
  pollTimeout: 10ms
  engine:
    maxEvents: 64
`))
	require.NoError(t, err)
	require.Equal(t, glog.WarnLevel, cfg.level())
	require.Equal(t, 2*time.Second, cfg.Heartbeat)
	require.Equal(t, 10*time.Millisecond, cfg.Reactor.PollTimeout)
	require.Equal(t, 64, cfg.Reactor.Engine.MaxEvents)
}

func TestDecodeConfigInvalid(t *testing.T) {
	for name, data := range map[string]string{
		"unknown field":     "heartbeat: 1s\nfoo: bar\n",
		"unknown level":     "heartbeat: 1s\nlogLevel: loud\n",
		"missing heartbeat": "logLevel: info\n",
		"bad duration":      "heartbeat: soon\n",
	} {
		_, err := decodeConfig([]byte(data))
		require.Error(t, err, name)
	}
}
