// Package pipeline 串起抽取与整理：文档 + 看板定义 -> 帖子列表。
// 不访问网络和文件，便于测试。
package pipeline

import (
	"strings"

	"github.com/LJTian/DevNotes/internal/collector"
	"github.com/LJTian/DevNotes/internal/processor"
	"github.com/LJTian/DevNotes/internal/snapshot"
	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

type Result struct {
	Posts      []processor.Post
	Extraction collector.Extraction
}

// Run 文档 -> 候选 -> 最终列表
func Run(doc *goquery.Document, board *collector.Board) Result {
	if board == nil {
		return Result{Posts: []processor.Post{}}
	}
	ext := collector.Extract(doc, board)
	return Result{
		Posts:      processor.Finalize(ext.Candidates, board.MaxPosts),
		Extraction: ext,
	}
}

// RunHTML 先把 HTML 解析成文档再执行 Run
func RunHTML(html string, board *collector.Board) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{}, eris.Wrap(err, "pipeline: parse document")
	}
	return Run(doc, board), nil
}

// Plan 在 Run 的基础上与上一次快照比较，给出是否需要写入
type Plan struct {
	Result
	Next    string
	Changed bool
}

func Evaluate(doc *goquery.Document, previous string, board *collector.Board) (Plan, error) {
	res := Run(doc, board)
	next, changed, err := snapshot.Diff(previous, res.Posts)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Result: res, Next: next, Changed: changed}, nil
}
