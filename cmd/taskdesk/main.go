package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"taskdesk/internal/config"
	"taskdesk/internal/console"
	"taskdesk/internal/metrics"
	"taskdesk/internal/notify"
	"taskdesk/internal/task"
	"taskdesk/pkg/logger"
)

// main 是 taskdesk 命令行的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("taskdesk 运行失败: %v", err)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("taskdesk", flag.ContinueOnError)
	configPath := flags.String("config", "", "配置文件路径 (YAML 或 JSON)")
	script := flags.String("script", "", "从文件读取命令而不是标准输入")
	guided := flags.Bool("guided", false, "使用引导式提示流程")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.Resolve(*configPath))
	if err != nil {
		return err
	}
	if *script != "" {
		cfg.Console.Script = *script
	}
	if *guided {
		cfg.Console.Mode = config.ModeGuided
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Log.Audit.Enabled,
			Path:       cfg.Log.Audit.Path,
			MaxSizeMB:  cfg.Log.Audit.MaxSizeMB,
			MaxBackups: cfg.Log.Audit.MaxBackups,
			MaxAgeDays: cfg.Log.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer logger.Sync()

	sinks, err := buildSinks(ctx, cfg, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.L().Warn("关闭通知渠道失败", slog.Any("error", err))
		}
	}()

	collector := metrics.NewCollector()
	if cfg.Metrics.Address != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.StartServer(metricsCtx, cfg.Metrics.Address, collector.Handler()); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("指标服务异常退出", slog.Any("error", err))
			}
		}()
	}

	registry := task.NewRegistry(
		task.WithNotifier(sinks),
		task.WithObserver(collector),
		task.WithLogger(logger.Named("registry")),
	)

	in := stdin
	var opts []console.Option
	if cfg.Console.Script != "" {
		file, err := os.Open(cfg.Console.Script)
		if err != nil {
			return fmt.Errorf("打开命令脚本失败: %w", err)
		}
		defer file.Close()
		in = file
	} else if isTerminal(stdin) {
		opts = append(opts, console.WithPrompt(cfg.Console.Prompt))
	}

	session := console.NewSession(registry, in, stdout, opts...)
	logger.L().Info("taskdesk 启动",
		slog.String("session_id", session.ID()),
		slog.String("mode", cfg.Console.Mode),
		slog.Int("notice_sinks", sinks.Len()),
	)
	if cfg.Console.Mode == config.ModeGuided {
		return session.RunGuided(ctx)
	}
	return session.Run(ctx)
}

func buildSinks(ctx context.Context, cfg *config.Config, stdout io.Writer) (*notify.Fanout, error) {
	var sinks []notify.Sink
	closeAll := func() {
		_ = notify.NewFanout(sinks...).Close()
	}

	if cfg.Notify.WriterEnabled() {
		sinks = append(sinks, notify.NewWriterSink(stdout))
	}
	if cfg.Notify.Log {
		sinks = append(sinks, notify.NewLogSink(logger.Audit()))
	}
	if cfg.Notify.Redis.Enabled {
		sink, err := notify.NewRedisSink(ctx, notify.RedisConfig{
			Address:  cfg.Notify.Redis.Address,
			Password: cfg.Notify.Redis.Password,
			DB:       cfg.Notify.Redis.DB,
			Key:      cfg.Notify.Redis.Key,
		})
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if cfg.Notify.RabbitMQ.Enabled {
		sink, err := notify.NewRabbitMQSink(notify.RabbitMQConfig{
			URL:     cfg.Notify.RabbitMQ.URL,
			Queue:   cfg.Notify.RabbitMQ.Queue,
			Durable: cfg.Notify.RabbitMQ.Durable,
		})
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	return notify.NewFanout(sinks...), nil
}

func isTerminal(r io.Reader) bool {
	file, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
