package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/partnerhub/internal/app"
	"github.com/partnerhub/internal/config"
	"github.com/partnerhub/internal/constants"
	"github.com/partnerhub/internal/logger"
)

// 单次执行维护任务，便于由外部 cron / k8s CronJob 调度
func main() {
	var name string
	flag.StringVar(&name, "job", constants.JobLockSweep, "任务名: lock_sweep, commission_sync, tier_recalc")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions("job"))
	defer logger.Sync()
	stdLog := logger.StdLogger()

	if err := app.InitStore(cfg); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	report, err := app.RunJob(ctx, cfg, name)
	if report != nil {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	}
	if err != nil {
		stdLog.Fatalf("任务执行失败: %v", err)
	}
}
