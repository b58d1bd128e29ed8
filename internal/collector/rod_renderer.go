package collector

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// RodRenderer 另一种无头浏览器实现，Chrome 由 rod 自动下载或使用系统安装
type RodRenderer struct {
	opts RenderOptions
}

func NewRodRenderer(opts RenderOptions) *RodRenderer {
	return &RodRenderer{opts: opts.withDefaults()}
}

func (r *RodRenderer) Name() string {
	return "rod"
}

func (r *RodRenderer) Render(ctx context.Context, target string) (string, error) {
	l := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("blink-settings", "imagesEnabled=false")
	controlURL, err := l.Launch()
	if err != nil {
		return "", eris.Wrap(err, "rod: launch browser")
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", eris.Wrap(err, "rod: connect browser")
	}
	defer browser.Close()

	page, err := browser.Timeout(r.opts.Timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", eris.Wrap(err, "rod: open page")
	}
	if err := page.SetViewport(rodViewport()); err != nil {
		zap.L().Warn("rod: set viewport failed", zap.Error(err))
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.opts.UserAgent}); err != nil {
		zap.L().Warn("rod: set user agent failed", zap.Error(err))
	}

	zap.L().Info("render board", zap.String("renderer", r.Name()), zap.String("url", target))
	if err := page.Timeout(r.opts.Timeout).Navigate(target); err != nil {
		return "", eris.Wrapf(err, "rod: navigate %s", target)
	}
	if err := page.Timeout(r.opts.Timeout).WaitLoad(); err != nil {
		return "", eris.Wrap(err, "rod: wait load")
	}

	found := r.waitAny(page, r.opts.WaitTimeout)
	if _, err := page.Eval(`() => ` + autoScrollJS); err != nil {
		zap.L().Warn("rod: auto scroll failed", zap.Error(err))
	}
	if !found && !r.waitAny(page, r.opts.WaitTimeout*2/3) {
		zap.L().Warn("rod: no candidate selector appeared", zap.Strings("selectors", r.opts.WaitSelectors))
	}

	html, err := page.HTML()
	if err != nil {
		return "", eris.Wrap(err, "rod: read document")
	}
	return checkDocument(html)
}

func rodViewport() *proto.EmulationSetDeviceMetricsOverride {
	return &proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}
}

func (r *RodRenderer) waitAny(page *rod.Page, timeout time.Duration) bool {
	for _, sel := range r.opts.WaitSelectors {
		if _, err := page.Timeout(timeout).Element(sel); err == nil {
			return true
		}
	}
	return false
}
