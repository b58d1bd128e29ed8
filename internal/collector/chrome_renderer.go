package collector

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ChromeRenderer 用 headless Chrome 渲染由 JS 插入列表的看板页
type ChromeRenderer struct {
	opts RenderOptions
}

func NewChromeRenderer(opts RenderOptions) *ChromeRenderer {
	return &ChromeRenderer{opts: opts.withDefaults()}
}

func (r *ChromeRenderer) Name() string {
	return "chrome"
}

// WithWaitSelectors 返回一个等待给定选择器的副本
func (r *ChromeRenderer) WithWaitSelectors(sels []string) *ChromeRenderer {
	opts := r.opts
	opts.WaitSelectors = sels
	return &ChromeRenderer{opts: opts}
}

func (r *ChromeRenderer) Render(ctx context.Context, target string) (string, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.UserAgent(r.opts.UserAgent),
		chromedp.WindowSize(viewportWidth, viewportHeight),
		// 不加载图片，加快渲染
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	navCtx, cancelNav := context.WithTimeout(browserCtx, r.opts.Timeout)
	defer cancelNav()

	zap.L().Info("render board", zap.String("renderer", r.Name()), zap.String("url", target))
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return "", eris.Wrapf(err, "chrome: navigate %s", target)
	}

	// 列表可能由 JS 异步插入：先等候选选择器，再滚动；都没等到就滚动后再等一轮
	found := r.waitAny(navCtx, r.opts.WaitTimeout)
	var scrolled bool
	if err := chromedp.Run(navCtx, chromedp.Evaluate(autoScrollJS, &scrolled, awaitPromise)); err != nil {
		zap.L().Warn("chrome: auto scroll failed", zap.Error(err))
	}
	if !found {
		found = r.waitAny(navCtx, r.opts.WaitTimeout*2/3)
	}
	if !found {
		zap.L().Warn("chrome: no candidate selector appeared", zap.Strings("selectors", r.opts.WaitSelectors))
	}

	var html string
	if err := chromedp.Run(navCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", eris.Wrap(err, "chrome: read document")
	}
	return checkDocument(html)
}

func (r *ChromeRenderer) waitAny(ctx context.Context, timeout time.Duration) bool {
	for _, sel := range r.opts.WaitSelectors {
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(sel, chromedp.ByQuery))
		cancel()
		if err == nil {
			return true
		}
	}
	return false
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// autoScrollJS 每 250ms 下滚 600px，直到累计超过页面高度的 1.2 倍
const autoScrollJS = `new Promise(function (resolve) {
  var total = 0;
  var distance = 600;
  var timer = setInterval(function () {
    window.scrollBy(0, distance);
    total += distance;
    if (total >= document.body.scrollHeight * 1.2) {
      clearInterval(timer);
      resolve(true);
    }
  }, 250);
})`
