package collector

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// ErrInvalidBoard 看板定义不完整或无法解析
var ErrInvalidBoard = eris.New("collector: invalid board definition")

const DefaultMaxPosts = 10

// BoardDef 描述一个看板：地址、帖子路径规则、选择器。可由 YAML 文件加载。
type BoardDef struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	PostPath string `yaml:"post_path"` // 帖子链接的固定前缀，后接数字 ID
	MaxPosts int    `yaml:"max_posts"`

	// 按优先级排列的候选链接选择器，结果取并集
	Strategies []StrategyDef `yaml:"strategies"`

	CardSelector  string   `yaml:"card_selector"`  // 链接所在的“卡片”容器
	TitleSelector string   `yaml:"title_selector"` // 链接文本为空时在卡片内找标题
	DateSelectors []string `yaml:"date_selectors"` // 依次尝试，首个非空文本生效
}

type StrategyDef struct {
	Name     string `yaml:"name"`
	Selector string `yaml:"selector"`
}

// DefaultBoardDef 内置看板：세나 리버스 라운지的开发者笔记（board 3）
func DefaultBoardDef() BoardDef {
	return BoardDef{
		Name:     "sena_rebirth_devnotes",
		URL:      "https://game.naver.com/lounge/sena_rebirth/board/3",
		PostPath: "/lounge/sena_rebirth/board/3/",
		MaxPosts: DefaultMaxPosts,
		Strategies: []StrategyDef{
			{Name: "board_href", Selector: `a[href*="/lounge/sena_rebirth/board/3/"]`},
			{Name: "list_title", Selector: `ul li a[class*="title"]`},
			{Name: "post_class", Selector: `a[class*="post"]`},
		},
		CardSelector:  "li, article, div",
		TitleSelector: "strong, .title, .subject, h3",
		DateSelectors: []string{
			"time",
			`[class*="date"]`,
			`[class*="time"]`,
			`span[aria-label*="날짜"], span[aria-label*="작성"]`,
		},
	}
}

// Strategy 一种“找候选链接”的方式，按数据组合而非继承
type Strategy struct {
	Name string
	Find func(doc *goquery.Document) *goquery.Selection
}

// SelectorStrategy 基于 CSS 选择器的策略
func SelectorStrategy(name, selector string) Strategy {
	return Strategy{
		Name: name,
		Find: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find(selector)
		},
	}
}

// Board 编译后的看板定义，整个抽取流程只读
type Board struct {
	Name          string
	URL           string
	MaxPosts      int
	Strategies    []Strategy
	CardSelector  string
	TitleSelector string
	DateSelectors []string

	origin      *url.URL
	postPattern *regexp.Regexp
	waitOn      []string
}

// NewBoard 校验并编译看板定义
func NewBoard(def BoardDef) (*Board, error) {
	if strings.TrimSpace(def.URL) == "" {
		return nil, eris.Wrap(ErrInvalidBoard, "url is required")
	}
	u, err := url.Parse(def.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, eris.Wrapf(ErrInvalidBoard, "url %q is not absolute", def.URL)
	}
	path := strings.TrimRight(strings.TrimSpace(def.PostPath), "/")
	if path == "" {
		return nil, eris.Wrap(ErrInvalidBoard, "post_path is required")
	}
	if len(def.Strategies) == 0 {
		return nil, eris.Wrap(ErrInvalidBoard, "at least one strategy is required")
	}

	b := &Board{
		Name:          def.Name,
		URL:           def.URL,
		MaxPosts:      def.MaxPosts,
		CardSelector:  def.CardSelector,
		TitleSelector: def.TitleSelector,
		DateSelectors: def.DateSelectors,
		origin:        &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"},
		postPattern:   regexp.MustCompile(regexp.QuoteMeta(path) + `/\d+`),
	}
	if b.Name == "" {
		b.Name = u.Host + u.Path
	}
	if b.MaxPosts <= 0 {
		b.MaxPosts = DefaultMaxPosts
	}
	if b.MaxPosts > DefaultMaxPosts {
		return nil, eris.Wrapf(ErrInvalidBoard, "max_posts %d exceeds %d", b.MaxPosts, DefaultMaxPosts)
	}
	if b.CardSelector == "" {
		b.CardSelector = "li, article, div"
	}
	for i, s := range def.Strategies {
		if strings.TrimSpace(s.Selector) == "" {
			return nil, eris.Wrapf(ErrInvalidBoard, "strategy %d has no selector", i)
		}
		name := s.Name
		if name == "" {
			name = s.Selector
		}
		b.Strategies = append(b.Strategies, SelectorStrategy(name, s.Selector))
		b.waitOn = append(b.waitOn, s.Selector)
	}
	return b, nil
}

// Origin 站点根地址，相对链接据此解析
func (b *Board) Origin() string {
	return strings.TrimSuffix(b.origin.String(), "/")
}

// WaitSelectors 渲染器等待列表出现时使用的选择器
func (b *Board) WaitSelectors() []string {
	return append([]string(nil), b.waitOn...)
}

// MatchPost 判断 href 是否符合“固定前缀 + 数字 ID”的帖子地址
func (b *Board) MatchPost(href string) bool {
	return b.postPattern.MatchString(href)
}

// Resolve 将 href 解析为绝对地址
func (b *Board) Resolve(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", eris.Wrapf(err, "collector: parse href %q", href)
	}
	abs := b.origin.ResolveReference(ref)
	abs.Host = canonicalHost(abs.Scheme, abs.Host)
	abs.RawQuery = escapeQuery(abs.RawQuery)
	return abs.String(), nil
}

// canonicalHost 主机名小写，去掉协议默认端口
func canonicalHost(scheme, host string) string {
	host = strings.ToLower(host)
	switch {
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	}
	return host
}

// escapeQuery 按浏览器规则对查询串里的非 ASCII、空格、引号、尖括号做百分号编码，已有的 %XX 保持不变
func escapeQuery(q string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(q); i++ {
		c := q[i]
		if c >= 0x80 || c <= 0x20 || c == '"' || c == '\'' || c == '<' || c == '>' || c == 0x7f {
			sb.WriteByte('%')
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0x0f])
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
