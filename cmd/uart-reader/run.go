package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wfunc/uart-reader/internal/capture"
	"github.com/wfunc/uart-reader/internal/config"
	"github.com/wfunc/uart-reader/internal/database"
	"github.com/wfunc/uart-reader/internal/errors"
	"github.com/wfunc/uart-reader/internal/hardware"
	"github.com/wfunc/uart-reader/internal/logger"
	"github.com/wfunc/uart-reader/internal/repository"
	"github.com/wfunc/uart-reader/internal/session"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the port, send the frame and dump incoming data",
	Long: `Opens /dev/ttyACM0 (115200 baud, 10ms read timeout), writes the fixed
frame once and prints every received chunk until Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		// 日志级别热更新
		if config.ConfigFileUsed() != "" {
			config.Watch(func(newCfg *config.Config) {
				logger.SetLevel(newCfg.Log.Level)
				logger.Info("配置已重新加载", zap.String("log_level", newCfg.Log.Level))
			})
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runSession(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	// 不带子命令时执行 run
	rootCmd.RunE = runCmd.RunE
	rootCmd.Args = cobra.NoArgs
}

// runSession 运行一次串口会话，直到 ctx 取消
func runSession(ctx context.Context, cfg *config.Config, out, diag io.Writer) error {
	open, err := hardware.OpenerFor(cfg.Serial.Driver, cfg.Serial.MockEcho)
	if err != nil {
		return err
	}

	opts := []session.Option{session.WithOutput(out, diag)}
	if cfg.Capture.Enabled {
		rec, err := startCapture(&cfg.Capture)
		if err != nil {
			// 记录功能不可用时仍然运行会话
			logger.Warn("流量记录初始化失败，已禁用", zap.Error(err))
		} else {
			defer stopCapture(rec)
			opts = append(opts, session.WithRecorder(rec))
		}
	}

	err = session.New(open, opts...).Run(ctx)
	switch {
	case err == nil, stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		logger.Info("会话结束")
		return nil
	case errors.Is(err, errors.ErrSerialPortOpen):
		fmt.Fprintf(diag, "Failed to open serial port: %v\n", openCause(err))
		logger.Error("打开串口失败", zap.Error(err),
			zap.Bool("device_exists", hardware.SerialPortExists(session.DevicePath)),
			zap.Bool("char_device", hardware.IsCharDevice(session.DevicePath)))
		return &exitError{code: 1}
	default:
		return err
	}
}

// startCapture 连接数据库、清理过期记录并创建记录器
func startCapture(cfg *config.CaptureConfig) (*capture.Recorder, error) {
	if err := database.Init(cfg); err != nil {
		return nil, err
	}

	repo := repository.NewSerialLogRepository(database.GetDB())
	if _, err := capture.ApplyRetention(repo, cfg.RetentionDays); err != nil {
		logger.Warn("清理过期流量记录失败", zap.Error(err))
	}

	return capture.NewRecorder(repo, session.DevicePath), nil
}

func stopCapture(rec *capture.Recorder) {
	if err := rec.Close(); err != nil {
		logger.Warn("关闭流量记录失败", zap.Error(err))
	}
	if err := database.Close(); err != nil {
		logger.Warn("关闭数据库失败", zap.Error(err))
	}
}

// openCause 去掉错误码包装，返回驱动给出的原始错误
func openCause(err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Cause != nil {
		return appErr.Cause
	}
	return err
}
