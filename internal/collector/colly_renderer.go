package collector

import (
	"context"
	"net/url"

	"github.com/gocolly/colly/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CollyRenderer 直接 HTTP 抓取，适合服务端直出列表的看板
type CollyRenderer struct {
	opts RenderOptions
}

func NewCollyRenderer(opts RenderOptions) *CollyRenderer {
	return &CollyRenderer{opts: opts.withDefaults()}
}

func (r *CollyRenderer) Name() string {
	return "colly"
}

func (r *CollyRenderer) Render(ctx context.Context, target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", eris.Wrapf(err, "colly: parse target %q", target)
	}
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "colly: context done before visit")
	}

	c := colly.NewCollector(
		colly.AllowedDomains(u.Hostname()),
		colly.UserAgent(r.opts.UserAgent),
	)
	c.SetRequestTimeout(r.opts.Timeout)

	var body string
	c.OnResponse(func(resp *colly.Response) {
		body = string(resp.Body)
	})

	zap.L().Info("render board", zap.String("renderer", r.Name()), zap.String("url", target))
	if err := c.Visit(target); err != nil {
		return "", eris.Wrapf(err, "colly: visit %s", target)
	}
	c.Wait()

	return checkDocument(body)
}
