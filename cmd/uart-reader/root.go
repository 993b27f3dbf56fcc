package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wfunc/uart-reader/internal/config"
	"github.com/wfunc/uart-reader/internal/logger"
)

// exitError 已输出提示，只需按退出码退出
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var rootCmd = &cobra.Command{
	Use:   "uart-reader",
	Short: "Dump bytes received on /dev/ttyACM0",
	Long: `uart-reader opens /dev/ttyACM0 at 115200 baud, sends a fixed 18-byte
bootloader frame once, then prints every chunk it receives as a hex line and
an ASCII line until interrupted.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute 执行命令并按结果退出
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ee *exitError
	if stderrors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "配置文件路径")
}

// setup 加载配置并初始化日志
func setup(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if err := config.Init(path); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cfg := config.Get()
	if err := logger.Init(&cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	logger.Cleanup()
	return nil
}
