// Command greactor 运行一个基于 greactor 的示例守护进程:
// 周期性输出心跳, 回显标准输入, 并在配置文件变更时重新加载心跳间隔.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/godyy/glog"
)

func main() {
	configPath := flag.String("config", "greactor.yaml", "config file path")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := glog.NewLogger(&glog.Config{
		Level:        cfg.level(),
		EnableCaller: true,
		CallerSkip:   0,
		Development:  false,
		Cores:        []glog.CoreConfig{glog.NewStdCoreConfig()},
	})

	d, err := newDaemon(*configPath, cfg, logger)
	if err != nil {
		logger.ErrorFields("create daemon", lfdError(err))
		os.Exit(1)
	}

	if err := d.run(); err != nil {
		logger.ErrorFields("daemon stopped", lfdError(err))
		os.Exit(1)
	}
}
