// Package snapshot 负责输出文件的稳定序列化与“内容变化才写入”。
package snapshot

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/LJTian/DevNotes/internal/processor"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// EmptyBaseline 上一次快照缺失或不可读时的基线
const EmptyBaseline = "[]"

// ErrNoSnapshot 存储中还没有快照
var ErrNoSnapshot = eris.New("snapshot: no snapshot stored")

// Store 快照的读写介质
type Store interface {
	Read() (string, error)
	Write(content string) error
}

// Encode 稳定序列化：键顺序 title/url/date，两空格缩进，不转义 HTML 字符，无结尾换行
func Encode(posts []processor.Post) (string, error) {
	if posts == nil {
		posts = []processor.Post{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(posts); err != nil {
		return "", eris.Wrap(err, "snapshot: encode posts")
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Diff 逐字比较（忽略首尾空白），返回新序列化结果以及是否变化
func Diff(previous string, posts []processor.Post) (next string, changed bool, err error) {
	next, err = Encode(posts)
	if err != nil {
		return "", false, err
	}
	return next, strings.TrimSpace(previous) != strings.TrimSpace(next), nil
}

// Outcome 一次写入判定的结果
type Outcome struct {
	Changed bool
	Content string // 新的序列化内容（不含结尾换行）
	Parsed  int
}

type Snapshotter struct {
	store Store
}

func New(store Store) *Snapshotter {
	return &Snapshotter{store: store}
}

// Load 读取上一次快照，失败一律按空列表处理
func (s *Snapshotter) Load() string {
	prev, err := s.store.Read()
	if err != nil {
		if !eris.Is(err, ErrNoSnapshot) {
			zap.L().Warn("snapshot: read previous failed, using empty baseline", zap.Error(err))
		}
		return EmptyBaseline
	}
	return prev
}

// WriteIfChanged 内容未变时不触碰存储；变化时写入新内容并追加一个换行
func (s *Snapshotter) WriteIfChanged(previous string, posts []processor.Post) (Outcome, error) {
	next, changed, err := Diff(previous, posts)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Changed: changed, Content: next, Parsed: len(posts)}
	if !changed {
		return out, nil
	}
	if err := s.store.Write(next + "\n"); err != nil {
		return Outcome{}, eris.Wrap(err, "snapshot: write")
	}
	return out, nil
}

// Decode 把快照内容解析回帖子列表，供 API 展示
func Decode(content string) ([]processor.Post, error) {
	posts := []processor.Post{}
	if strings.TrimSpace(content) == "" {
		return posts, nil
	}
	if err := json.Unmarshal([]byte(content), &posts); err != nil {
		return nil, eris.Wrap(err, "snapshot: decode")
	}
	return posts, nil
}
