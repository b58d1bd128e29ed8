package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LJTian/DevNotes/internal/api"
	"github.com/LJTian/DevNotes/internal/config"
	"github.com/LJTian/DevNotes/internal/scheduler"
	"github.com/LJTian/DevNotes/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger 尚未初始化
		_, _ = os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		_, _ = os.Stderr.WriteString("init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = zap.L().Sync() }()
	log := zap.L()

	board, err := config.LoadBoard(cfg.BoardFile)
	if err != nil {
		log.Fatal("load board failed", zap.Error(err))
	}

	// 未配置 POSTGRES_DSN 时只维护快照文件，历史接口返回 503
	var (
		history scheduler.History
		reader  api.HistoryReader
	)
	if cfg.PostgresDSN != "" {
		store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
		if err != nil {
			log.Fatal("init store failed", zap.Error(err))
		}
		history, reader = store, store
	} else {
		log.Info("history store disabled, POSTGRES_DSN is empty")
	}

	job, file, err := scheduler.BuildJob(cfg, board, history)
	if err != nil {
		log.Fatal("init job failed", zap.Error(err))
	}

	s, err := scheduler.New(cfg.CronSpec, job, time.Duration(cfg.RenderTimeoutSecs)*time.Second*2)
	if err != nil {
		log.Fatal("init scheduler failed", zap.Error(err))
	}
	s.Start()
	defer s.Stop()

	// API
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	apiServer := api.NewServer(board.Name, file, reader, job).
		WithBasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass)
	apiServer.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Info("starting api server", zap.String("addr", srv.Addr), zap.String("board", board.URL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server exit", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
}
