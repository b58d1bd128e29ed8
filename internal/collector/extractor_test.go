package collector

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boardFixture = `<!DOCTYPE html>
<html><body>
<nav>
  <a href="/lounge/sena_rebirth/home">홈</a>
  <a href="https://ad.example.com/x">광고</a>
</nav>
<ul class="board_list">
  <li class="item">
    <a class="post_title" href="/lounge/sena_rebirth/board/3/1003">  업데이트 안내  </a>
    <span class="date">2025.9.3.</span>
  </li>
  <li class="item">
    <a class="post_link" href="/lounge/sena_rebirth/board/3/1002"><img src="thumb.png"></a>
    <h3>Patch Notes #12</h3>
    <time>2025-09-02</time>
  </li>
  <li class="item">
    <a class="title" href="https://game.naver.com/lounge/sena_rebirth/board/3/1001">점검 공지</a>
    <span aria-label="작성일">2025/08/30</span>
  </li>
</ul>
<div class="card"><a class="post_more" href="/lounge/sena_rebirth/board/3/1003">다시 보기</a></div>
<a class="post_banner" href="/lounge/other/board/1/55">배너</a>
<a class="post_empty">링크 없음</a>
</body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func mustBoard(t *testing.T) *Board {
	t.Helper()
	b, err := NewBoard(DefaultBoardDef())
	require.NoError(t, err)
	return b
}

func TestExtractUnionsStrategiesInPriorityOrder(t *testing.T) {
	ext := Extract(mustDoc(t, boardFixture), mustBoard(t))

	require.Len(t, ext.Candidates, 3)

	assert.Equal(t, RawCandidate{
		Href:    "/lounge/sena_rebirth/board/3/1003",
		URL:     "https://game.naver.com/lounge/sena_rebirth/board/3/1003",
		Title:   "업데이트 안내",
		RawDate: "2025.9.3.",
	}, ext.Candidates[0])

	assert.Equal(t, "https://game.naver.com/lounge/sena_rebirth/board/3/1002", ext.Candidates[1].URL)
	assert.Equal(t, "2025-09-02", ext.Candidates[1].RawDate)

	assert.Equal(t, "https://game.naver.com/lounge/sena_rebirth/board/3/1001", ext.Candidates[2].URL)
	assert.Equal(t, "점검 공지", ext.Candidates[2].Title)
	assert.Equal(t, "2025/08/30", ext.Candidates[2].RawDate)
}

func TestExtractKeepsStrategyPriorityOverDocumentOrder(t *testing.T) {
	def := DefaultBoardDef()
	def.Strategies = []StrategyDef{
		{Name: "pinned", Selector: "a.pinned"},
		{Name: "regular", Selector: "a.regular"},
	}
	b, err := NewBoard(def)
	require.NoError(t, err)

	// 低优先级策略的链接在文档中更靠前
	html := `<ul>
  <li><a class="regular" href="/lounge/sena_rebirth/board/3/20">B1</a></li>
  <li><a class="pinned" href="/lounge/sena_rebirth/board/3/10">A1</a></li>
  <li><a class="regular" href="/lounge/sena_rebirth/board/3/21">B2</a></li>
  <li><a class="pinned" href="/lounge/sena_rebirth/board/3/11">A2</a></li>
</ul>`
	ext := Extract(mustDoc(t, html), b)

	titles := make([]string, 0, len(ext.Candidates))
	for _, c := range ext.Candidates {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"A1", "A2", "B1", "B2"}, titles)
	require.Len(t, ext.Results, 4)
	assert.Equal(t, "pinned", ext.Results[0].Strategy)
	assert.Equal(t, "regular", ext.Results[3].Strategy)
}

func TestExtractKeepsTitleCodepoints(t *testing.T) {
	// 分解形式的한글（macOS 常见）必须原样输出
	decomposed := "\u1100\u1161\u11a8 패치"
	html := `<ul><li><a href="/lounge/sena_rebirth/board/3/9"> ` + decomposed + ` </a></li></ul>`
	ext := Extract(mustDoc(t, html), mustBoard(t))

	require.Len(t, ext.Candidates, 1)
	assert.Equal(t, decomposed, ext.Candidates[0].Title)
	assert.NotEqual(t, "각 패치", ext.Candidates[0].Title)
}

func TestExtractTitleFallsBackToCardHeading(t *testing.T) {
	ext := Extract(mustDoc(t, boardFixture), mustBoard(t))
	require.Len(t, ext.Candidates, 3)
	assert.Equal(t, "Patch Notes #12", ext.Candidates[1].Title)
}

func TestExtractReportsSkips(t *testing.T) {
	ext := Extract(mustDoc(t, boardFixture), mustBoard(t))

	counts := ext.SkipCounts()
	assert.Equal(t, 6, counts[SkipDuplicate])
	assert.Equal(t, 1, counts[SkipForeignURL])
	assert.Equal(t, 1, counts[SkipNoHref])
	assert.Zero(t, counts[SkipMalformed])

	// 首个结果来自最高优先级策略
	require.NotEmpty(t, ext.Results)
	assert.Equal(t, "board_href", ext.Results[0].Strategy)
	assert.Equal(t, SkipNone, ext.Results[0].Skip)
}

func TestExtractForwardsCandidateWithoutTitle(t *testing.T) {
	html := `<ul><li><a href="/lounge/sena_rebirth/board/3/77"></a><span class="time">어제</span></li></ul>`
	ext := Extract(mustDoc(t, html), mustBoard(t))

	require.Len(t, ext.Candidates, 1)
	assert.Empty(t, ext.Candidates[0].Title)
	assert.Equal(t, "어제", ext.Candidates[0].RawDate)
}

func TestExtractDateCascadeSkipsEmptyHits(t *testing.T) {
	html := `<article>
  <a href="/lounge/sena_rebirth/board/3/5">제목</a>
  <time>  </time>
  <span class="reg_date"></span>
  <span class="write_time">2024.1.5</span>
</article>`
	ext := Extract(mustDoc(t, html), mustBoard(t))

	require.Len(t, ext.Candidates, 1)
	assert.Equal(t, "2024.1.5", ext.Candidates[0].RawDate)
}

func TestExtractMalformedElementDoesNotAbortRun(t *testing.T) {
	// 未经 NewBoard 编译的看板缺少帖子规则，逐元素处理会 panic
	broken := &Board{
		Strategies:   []Strategy{SelectorStrategy("any", "a")},
		CardSelector: "li",
	}
	html := `<ul><li><a href="/a/1">one</a></li><li><a href="/a/2">two</a></li></ul>`

	ext := Extract(mustDoc(t, html), broken)
	assert.Empty(t, ext.Candidates)
	assert.Equal(t, 2, ext.SkipCounts()[SkipMalformed])
}

func TestExtractNilInputs(t *testing.T) {
	assert.Empty(t, Extract(nil, mustBoard(t)).Candidates)
	assert.Empty(t, Extract(mustDoc(t, boardFixture), nil).Candidates)
}
