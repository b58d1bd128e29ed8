package collector

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrEmptyDocument 渲染结果为空，视为整轮失败
var ErrEmptyDocument = eris.New("collector: rendered document is empty")

// RawCandidate 抽取阶段的中间结果，未经校验，不落盘
type RawCandidate struct {
	Href    string // 原始 href，可能是相对路径
	URL     string // 基于站点 origin 解析后的绝对地址
	Title   string
	RawDate string
}

// Renderer 抽象“页面如何变成可解析的 HTML”：HTTP 直取或无头浏览器渲染
type Renderer interface {
	Name() string
	Render(ctx context.Context, target string) (string, error)
}

// RenderOptions 渲染器的公共参数
type RenderOptions struct {
	UserAgent     string
	Timeout       time.Duration // 整页导航超时
	WaitTimeout   time.Duration // 单个候选选择器的等待时间
	WaitSelectors []string      // 列表由 JS 插入时需要等待的选择器
	ServiceURL    string        // remote 渲染服务地址
}

const (
	defaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124 Safari/537.36"
	defaultTimeout     = 120 * time.Second
	defaultWaitTimeout = 15 * time.Second

	// 无头浏览器的窗口尺寸，列表首屏按此高度加载
	viewportWidth  = 1280
	viewportHeight = 1600
)

func (o RenderOptions) withDefaults() RenderOptions {
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = defaultWaitTimeout
	}
	return o
}

// NewRenderer 按名称构造渲染器
func NewRenderer(kind string, opts RenderOptions) (Renderer, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "colly", "http":
		return NewCollyRenderer(opts), nil
	case "", "chrome", "chromedp":
		return NewChromeRenderer(opts), nil
	case "rod":
		return NewRodRenderer(opts), nil
	case "remote":
		if opts.ServiceURL == "" {
			return nil, eris.New("collector: remote renderer requires a service url")
		}
		return NewRemoteRenderer(opts), nil
	default:
		return nil, eris.Errorf("collector: unknown renderer %q", kind)
	}
}

func checkDocument(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", ErrEmptyDocument
	}
	return html, nil
}
