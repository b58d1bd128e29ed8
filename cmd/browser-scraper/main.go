package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/LJTian/DevNotes/internal/collector"
	"github.com/LJTian/DevNotes/internal/config"
)

// 渲染服务：POST /render {url, waitSelectors} -> {ok, html, error}
// 供 RENDERER=remote 的采集端调用，采集端所在环境无需安装 Chrome。
func main() {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", "4000")
	v.SetDefault("render_timeout_secs", 120)
	v.SetDefault("wait_timeout_secs", 15)
	v.SetDefault("user_agent", "")
	v.SetDefault("log_level", "info")

	if err := config.InitLogger(config.LogConfig{Level: v.GetString("log_level"), Format: "json"}); err != nil {
		panic(err)
	}
	defer func() { _ = zap.L().Sync() }()
	log := zap.L()

	timeout := time.Duration(v.GetInt("render_timeout_secs")) * time.Second
	base := collector.NewChromeRenderer(collector.RenderOptions{
		UserAgent:   v.GetString("user_agent"),
		Timeout:     timeout,
		WaitTimeout: time.Duration(v.GetInt("wait_timeout_secs")) * time.Second,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/render", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req collector.RenderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, collector.RenderResponse{OK: false, Error: "invalid json"})
			return
		}
		if u, err := url.Parse(req.URL); err != nil || !u.IsAbs() {
			writeJSON(w, http.StatusBadRequest, collector.RenderResponse{OK: false, Error: "absolute url is required"})
			return
		}

		// 每个请求用独立的超时上下文，留一点余量给浏览器启动
		ctx, cancel := context.WithTimeout(r.Context(), timeout+10*time.Second)
		defer cancel()

		html, err := base.WithWaitSelectors(req.WaitSelectors).Render(ctx, req.URL)
		if err != nil {
			log.Warn("render failed", zap.String("url", req.URL), zap.Error(err))
			msg := err.Error()
			if eris.Is(err, collector.ErrEmptyDocument) {
				msg = "empty content"
			}
			writeJSON(w, http.StatusOK, collector.RenderResponse{OK: false, Error: msg})
			return
		}

		log.Info("rendered", zap.String("url", req.URL), zap.Int("bytes", len(html)))
		writeJSON(w, http.StatusOK, collector.RenderResponse{OK: true, HTML: html})
	})

	addr := ":" + v.GetString("port")
	log.Info("browser-scraper listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("http server error", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
