package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/LJTian/DevNotes/internal/collector"
)

// DefaultLimit 输出列表最多保留的帖子数
const DefaultLimit = 10

// Post 对外输出的最小单元，字段顺序即 JSON 键顺序
type Post struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
}

// Finalize 把抽取阶段的候选整理成最终列表，顺序固定：
// 过滤空标题/空地址 -> 规范日期 -> 按 URL 去重（保留首个）-> 截断到 limit。
// limit 不在 (0, DefaultLimit] 内时按 DefaultLimit 处理。
// 纯函数，相同输入得到相同输出。
func Finalize(candidates []collector.RawCandidate, limit int) []Post {
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}

	out := make([]Post, 0, min(len(candidates), limit))
	seen := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		title := strings.TrimSpace(c.Title)
		url := strings.TrimSpace(c.URL)
		if title == "" || url == "" {
			continue
		}
		p := Post{Title: title, URL: url, Date: collector.NormalizeDate(c.RawDate)}

		if _, ok := seen[p.URL]; ok {
			continue
		}
		seen[p.URL] = struct{}{}

		out = append(out, p)
		if len(out) == limit {
			break
		}
	}

	return out
}

// ID 帖子在历史库中的主键，由 URL 派生
func (p Post) ID() string {
	return hashURL(p.URL)
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
