package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LJTian/DevNotes/internal/config"
	"github.com/LJTian/DevNotes/internal/scheduler"
	"github.com/LJTian/DevNotes/internal/storage"
)

var (
	cfg         *config.Config
	loggerReady bool
)

// 一个仅执行一次采集任务的命令行入口：成功（无论是否有变化）退出码 0，失败退出码 1
var rootCmd = &cobra.Command{
	Use:           "devnotes-collect",
	Short:         "Collect the latest developer notes once and update the snapshot file",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := applyFlags(cmd, c); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		loggerReady = true
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	RunE: runCollect,
}

func init() {
	f := rootCmd.Flags()
	f.String("board-file", "", "YAML board definition (default: built-in developer notes board)")
	f.String("out-dir", "", "output directory (overrides OUT_DIR)")
	f.String("out-file", "", "output file name (overrides OUT_FILE)")
	f.String("renderer", "", "colly, chrome, rod or remote (overrides RENDERER)")
	f.Bool("history", false, "also write posts to the history store when POSTGRES_DSN is set")
}

// applyFlags 命令行参数优先于环境变量与配置文件
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	if v, _ := f.GetString("board-file"); v != "" {
		c.BoardFile = v
	}
	if v, _ := f.GetString("out-dir"); v != "" {
		c.OutDir = v
	}
	if v, _ := f.GetString("out-file"); v != "" {
		c.OutFile = v
	}
	if v, _ := f.GetString("renderer"); v != "" {
		c.Renderer = v
	}
	return c.Validate()
}

func runCollect(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	board, err := config.LoadBoard(cfg.BoardFile)
	if err != nil {
		return err
	}

	var history scheduler.History
	if useHistory, _ := cmd.Flags().GetBool("history"); useHistory && cfg.PostgresDSN != "" {
		store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
		if err != nil {
			return eris.Wrap(err, "init history store")
		}
		history = store
	}

	job, file, err := scheduler.BuildJob(cfg, board, history)
	if err != nil {
		return err
	}

	zap.L().Info("collecting devnotes",
		zap.String("url", board.URL),
		zap.String("renderer", job.Renderer.Name()),
		zap.String("out", file.Path()),
	)
	_, err = job.Run(ctx)
	return err
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		reportError(os.Stderr, loggerReady, err)
		os.Exit(1)
	}
}

// reportError 日志已初始化时走 zap，否则（配置加载失败）直接写 stderr
func reportError(w io.Writer, loggerReady bool, err error) {
	if loggerReady {
		zap.L().Error("collect failed", zap.Error(err))
		_ = zap.L().Sync()
		return
	}
	_, _ = fmt.Fprintf(w, "devnotes-collect: %v\n", err)
}
