package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	remoteMaxResponseBytes = 8 << 20 // 8MB
	// 服务端自身还要启动浏览器
	remoteTimeoutSlack     = 30 * time.Second
)

// RenderRequest / RenderResponse 是 cmd/browser-scraper 的 /render 接口协议
type RenderRequest struct {
	URL           string   `json:"url"`
	WaitSelectors []string `json:"waitSelectors,omitempty"`
}

type RenderResponse struct {
	OK    bool   `json:"ok"`
	HTML  string `json:"html,omitempty"`
	Error string `json:"error,omitempty"`
}

// RemoteRenderer 调用独立部署的浏览器渲染服务，采集进程本身不需要 Chrome
type RemoteRenderer struct {
	opts   RenderOptions
	client *http.Client
}

func NewRemoteRenderer(opts RenderOptions) *RemoteRenderer {
	opts = opts.withDefaults()
	return &RemoteRenderer{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout + remoteTimeoutSlack},
	}
}

func (r *RemoteRenderer) Name() string {
	return "remote"
}

func (r *RemoteRenderer) Render(ctx context.Context, target string) (string, error) {
	payload, err := json.Marshal(RenderRequest{URL: target, WaitSelectors: r.opts.WaitSelectors})
	if err != nil {
		return "", eris.Wrap(err, "remote: marshal request")
	}

	endpoint := strings.TrimRight(r.opts.ServiceURL, "/") + "/render"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "remote: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	zap.L().Info("render board", zap.String("renderer", r.Name()), zap.String("url", target), zap.String("service", endpoint))
	resp, err := r.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "remote: call %s", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("remote: unexpected status %d", resp.StatusCode)
	}

	var out RenderResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, remoteMaxResponseBytes)).Decode(&out); err != nil {
		return "", eris.Wrap(err, "remote: decode response")
	}
	if !out.OK {
		return "", eris.Errorf("remote: render failed: %s", out.Error)
	}
	return checkDocument(out.HTML)
}
