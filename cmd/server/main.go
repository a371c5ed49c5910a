package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/partnerhub/internal/app"
	"github.com/partnerhub/internal/config"
	"github.com/partnerhub/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
)

func main() {
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions(mode))
	defer logger.Sync()
	stdLog := logger.StdLogger()

	if _, err := app.ParseMode(mode); err != nil {
		stdLog.Fatalf("启动参数错误: %v", err)
	}
	printStartupBanner(cfg, mode)

	if err := app.CheckSecrets(cfg); err != nil {
		stdLog.Fatalf("密钥检查失败，请在生产环境中配置强随机密钥: %v", err)
	}
	if weak := app.WeakSecrets(cfg); len(weak) > 0 {
		logger.Warnw("weak_secrets_configured", "secrets", weak)
	}

	// 初始化数据库、迁移并补齐默认等级与锁定设置
	if err := app.InitStore(cfg); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	if cfg.Server.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner(cfg *config.Config, mode string) {
	line := strings.Repeat("-", 62)
	fmt.Println(ansiCyan + ansiBold + "partnerhub" + ansiReset + ansiDim + "  affiliate commission & tier engine" + ansiReset)
	fmt.Println(ansiDim + line + ansiReset)
	fmt.Printf("%s  mode=%s addr=%s db=%s queue=%t%s\n",
		ansiDim, mode, cfg.Server.Addr(), cfg.Database.Driver, cfg.Queue.Enabled, ansiReset)
}
