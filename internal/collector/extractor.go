package collector

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// SkipReason 单个元素被跳过的原因；空字符串表示产出了候选
type SkipReason string

const (
	SkipNone       SkipReason = ""
	SkipNoHref     SkipReason = "no_href"
	SkipForeignURL SkipReason = "foreign_url"
	SkipUnresolved SkipReason = "unresolvable_url"
	SkipDuplicate  SkipReason = "duplicate"
	SkipMalformed  SkipReason = "malformed"
)

// ElementResult 单个锚点元素的处理结果
type ElementResult struct {
	Strategy  string
	Candidate RawCandidate
	Skip      SkipReason
	Detail    string
}

// Extraction 一次抽取的全部产出
type Extraction struct {
	Candidates []RawCandidate
	Results    []ElementResult
}

// SkipCounts 按原因统计被跳过的元素数
func (e Extraction) SkipCounts() map[SkipReason]int {
	out := make(map[SkipReason]int)
	for _, r := range e.Results {
		if r.Skip != SkipNone {
			out[r.Skip]++
		}
	}
	return out
}

// Extract 依次执行看板的所有策略并合并结果：
// 同一次调用内按绝对地址去重，顺序为“策略优先级 -> 文档顺序”。
// 标题为空的候选照样产出，由下游过滤。
func Extract(doc *goquery.Document, board *Board) Extraction {
	var ext Extraction
	if doc == nil || board == nil {
		return ext
	}

	seen := make(map[string]struct{})
	for _, st := range board.Strategies {
		sel := st.Find(doc)
		if sel == nil {
			continue
		}
		sel.Each(func(_ int, a *goquery.Selection) {
			res := extractElement(a, board, seen)
			res.Strategy = st.Name
			ext.Results = append(ext.Results, res)
			if res.Skip != SkipNone {
				if res.Skip != SkipDuplicate {
					zap.L().Debug("skip element",
						zap.String("strategy", st.Name),
						zap.String("reason", string(res.Skip)),
						zap.String("detail", res.Detail),
					)
				}
				return
			}
			ext.Candidates = append(ext.Candidates, res.Candidate)
		})
	}
	return ext
}

// extractElement 处理单个锚点；任何异常只影响当前元素
func extractElement(a *goquery.Selection, board *Board, seen map[string]struct{}) (res ElementResult) {
	defer func() {
		if r := recover(); r != nil {
			res = ElementResult{Skip: SkipMalformed, Detail: fmt.Sprint(r)}
		}
	}()

	href, ok := a.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return ElementResult{Skip: SkipNoHref}
	}
	if !board.MatchPost(href) {
		return ElementResult{Skip: SkipForeignURL, Detail: href}
	}
	abs, err := board.Resolve(href)
	if err != nil {
		return ElementResult{Skip: SkipUnresolved, Detail: err.Error()}
	}
	if _, dup := seen[abs]; dup {
		return ElementResult{Skip: SkipDuplicate, Detail: abs}
	}
	seen[abs] = struct{}{}

	card := a.Closest(board.CardSelector)
	return ElementResult{
		Candidate: RawCandidate{
			Href:    href,
			URL:     abs,
			Title:   resolveTitle(a, card, board.TitleSelector),
			RawDate: resolveDate(card, board.DateSelectors),
		},
	}
}

func resolveTitle(a, card *goquery.Selection, titleSelector string) string {
	if title := cleanText(a.Text()); title != "" {
		return title
	}
	if titleSelector == "" || card.Length() == 0 {
		return ""
	}
	return cleanText(card.Find(titleSelector).First().Text())
}

// resolveDate 每个选择器只看卡片内的第一个命中元素，文本非空即返回
func resolveDate(card *goquery.Selection, selectors []string) string {
	if card.Length() == 0 {
		return ""
	}
	for _, sel := range selectors {
		if d := strings.TrimSpace(card.Find(sel).First().Text()); d != "" {
			return d
		}
	}
	return ""
}

// cleanText 只去首尾空白，标题内容原样保留
func cleanText(s string) string {
	return strings.TrimSpace(s)
}
