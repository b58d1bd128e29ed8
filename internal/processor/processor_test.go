package processor

import (
	"fmt"
	"testing"

	"github.com/LJTian/DevNotes/internal/collector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashURLDeterministicAndDistinct(t *testing.T) {
	url1 := "https://game.naver.com/lounge/sena_rebirth/board/3/1"
	url2 := "https://game.naver.com/lounge/sena_rebirth/board/3/2"

	assert.Equal(t, hashURL(url1), hashURL(url1))
	assert.NotEqual(t, hashURL(url1), hashURL(url2))
	assert.Len(t, Post{URL: url1}.ID(), 40)
}

func candidates(n int) []collector.RawCandidate {
	out := make([]collector.RawCandidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, collector.RawCandidate{
			Title:   fmt.Sprintf("개발자노트 #%d", i),
			URL:     fmt.Sprintf("https://game.naver.com/lounge/sena_rebirth/board/3/%d", 100-i),
			RawDate: fmt.Sprintf("2025.9.%d", i%28+1),
		})
	}
	return out
}

func TestFinalizeDropsIncompleteAndNormalizesDates(t *testing.T) {
	in := []collector.RawCandidate{
		{Title: "", URL: "https://example.com/board/3/1", RawDate: "2025.1.1"},
		{Title: "  공지  ", URL: "https://example.com/board/3/2", RawDate: "2025.9.1."},
		{Title: "no url", URL: "", RawDate: "2025.1.1"},
		{Title: "오늘 글", URL: "https://example.com/board/3/3", RawDate: "오늘"},
		{Title: "날짜 없음", URL: "https://example.com/board/3/4"},
	}

	out := Finalize(in, 10)
	require.Len(t, out, 3)
	assert.Equal(t, Post{Title: "공지", URL: "https://example.com/board/3/2", Date: "2025-09-01"}, out[0])
	assert.Equal(t, "오늘", out[1].Date)
	assert.Equal(t, "", out[2].Date)
}

func TestFinalizeKeepsFirstOccurrence(t *testing.T) {
	in := []collector.RawCandidate{
		{Title: "first", URL: "https://example.com/p/1", RawDate: "2025-01-01"},
		{Title: "other", URL: "https://example.com/p/2"},
		{Title: "second", URL: "https://example.com/p/1", RawDate: "2025-02-02"},
	}

	out := Finalize(in, 10)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Title)
	assert.Equal(t, "2025-01-01", out[0].Date)
	assert.Equal(t, "other", out[1].Title)
}

func TestFinalizeDuplicateWithEmptyTitleDoesNotShadowLaterOne(t *testing.T) {
	// 空标题的候选在第 1 步就被丢弃，不参与去重
	in := []collector.RawCandidate{
		{Title: "", URL: "https://example.com/p/1"},
		{Title: "real", URL: "https://example.com/p/1"},
	}

	out := Finalize(in, 10)
	require.Len(t, out, 1)
	assert.Equal(t, "real", out[0].Title)
}

func TestFinalizeCap(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{3, 3},
		{9, 9},
		{10, 10},
		{25, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			out := Finalize(candidates(tt.n), DefaultLimit)
			assert.Len(t, out, tt.want)
			if tt.n > 0 {
				assert.Equal(t, "개발자노트 #0", out[0].Title)
			}
		})
	}
}

func TestFinalizeCapCountsOnlyUniqueValidPosts(t *testing.T) {
	in := append(candidates(5), candidates(5)...)
	in = append(in, collector.RawCandidate{Title: "", URL: "https://example.com/x"})
	in = append(in, candidates(12)...)

	out := Finalize(in, 0)
	assert.Len(t, out, 10)

	urls := make(map[string]bool)
	for _, p := range out {
		assert.False(t, urls[p.URL], "duplicate url %s", p.URL)
		urls[p.URL] = true
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	in := append(candidates(7), collector.RawCandidate{Title: "dup", URL: "https://game.naver.com/lounge/sena_rebirth/board/3/100"})

	first := Finalize(in, 10)
	second := Finalize(in, 10)
	assert.Equal(t, first, second)
	assert.NotNil(t, Finalize(nil, 10))
}

func TestFinalizeLimitNeverExceedsDefault(t *testing.T) {
	assert.Len(t, Finalize(candidates(25), 25), DefaultLimit)
	assert.Len(t, Finalize(candidates(25), 4), 4)
}
