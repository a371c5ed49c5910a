package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/partnerhub/internal/config"
	"github.com/partnerhub/internal/logger"

	"go.uber.org/zap"
)

// 启动模式
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// ParseMode 校验启动模式，空值视为 all
func ParseMode(raw string) (string, error) {
	switch raw {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return raw, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %s, %s or %s)", raw, ModeAll, ModeAPI, ModeWorker)
	}
}

func (o Options) runsAPI() bool    { return o.Mode == ModeAll || o.Mode == ModeAPI }
func (o Options) runsWorker() bool { return o.Mode == ModeAll || o.Mode == ModeWorker }

// normalize 补齐默认参数，停机超时优先取配置
func (o Options) normalize() (Options, error) {
	if o.Config == nil {
		return o, errors.New("config is nil")
	}
	mode, err := ParseMode(o.Mode)
	if err != nil {
		return o, err
	}
	o.Mode = mode
	if o.Logger == nil {
		o.Logger = logger.S()
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = o.Config.Server.ShutdownTimeout()
	}
	return o, nil
}

// RunWithOptions 运行服务直到收到信号或某个服务退出
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, opts.Signals...)
		defer stop()
	}
	return runner.WithLogger(opts.Logger).Run(ctx, opts.ShutdownTimeout)
}
