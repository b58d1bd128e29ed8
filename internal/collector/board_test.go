package collector

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoardDefaults(t *testing.T) {
	b, err := NewBoard(DefaultBoardDef())
	require.NoError(t, err)

	assert.Equal(t, "https://game.naver.com", b.Origin())
	assert.Equal(t, DefaultMaxPosts, b.MaxPosts)
	assert.Len(t, b.Strategies, 3)
	assert.Equal(t, []string{
		`a[href*="/lounge/sena_rebirth/board/3/"]`,
		`ul li a[class*="title"]`,
		`a[class*="post"]`,
	}, b.WaitSelectors())
}

func TestNewBoardRejectsIncompleteDefinitions(t *testing.T) {
	tests := []struct {
		name string
		edit func(*BoardDef)
	}{
		{"missing url", func(d *BoardDef) { d.URL = "" }},
		{"relative url", func(d *BoardDef) { d.URL = "/lounge/sena_rebirth/board/3" }},
		{"missing post path", func(d *BoardDef) { d.PostPath = " / " }},
		{"no strategies", func(d *BoardDef) { d.Strategies = nil }},
		{"empty selector", func(d *BoardDef) { d.Strategies = []StrategyDef{{Name: "x"}} }},
		{"max posts above cap", func(d *BoardDef) { d.MaxPosts = 25 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := DefaultBoardDef()
			tt.edit(&def)
			_, err := NewBoard(def)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalidBoard), "got %v", err)
		})
	}
}

func TestBoardMatchPost(t *testing.T) {
	b, err := NewBoard(DefaultBoardDef())
	require.NoError(t, err)

	tests := []struct {
		href string
		want bool
	}{
		{"/lounge/sena_rebirth/board/3/1234", true},
		{"https://game.naver.com/lounge/sena_rebirth/board/3/99?page=2", true},
		{"/lounge/sena_rebirth/board/3/", false},
		{"/lounge/sena_rebirth/board/3/notice", false},
		{"/lounge/sena_rebirth/board/31/12", false},
		{"/lounge/other/board/3/12", false},
		{"/lounge/sena_rebirth/home", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.MatchPost(tt.href), tt.href)
	}
}

func TestBoardResolve(t *testing.T) {
	b, err := NewBoard(DefaultBoardDef())
	require.NoError(t, err)

	got, err := b.Resolve("/lounge/sena_rebirth/board/3/1")
	require.NoError(t, err)
	assert.Equal(t, "https://game.naver.com/lounge/sena_rebirth/board/3/1", got)

	got, err = b.Resolve("https://m.game.naver.com/lounge/sena_rebirth/board/3/2")
	require.NoError(t, err)
	assert.Equal(t, "https://m.game.naver.com/lounge/sena_rebirth/board/3/2", got)

	_, err = b.Resolve("http://[::1")
	assert.Error(t, err)
}

func TestBoardResolveCanonicalizesLikeBrowser(t *testing.T) {
	b, err := NewBoard(DefaultBoardDef())
	require.NoError(t, err)

	tests := []struct {
		href string
		want string
	}{
		{"HTTPS://Game.Naver.COM:443/lounge/sena_rebirth/board/3/8", "https://game.naver.com/lounge/sena_rebirth/board/3/8"},
		{"/lounge/sena_rebirth/board/3/7?tag=공지 a", "https://game.naver.com/lounge/sena_rebirth/board/3/7?tag=%EA%B3%B5%EC%A7%80%20a"},
		{"/lounge/sena_rebirth/board/3/7?tag=%EA%B3%B5&page=2", "https://game.naver.com/lounge/sena_rebirth/board/3/7?tag=%EA%B3%B5&page=2"},
	}
	for _, tt := range tests {
		got, err := b.Resolve(tt.href)
		require.NoError(t, err, tt.href)
		assert.Equal(t, tt.want, got, tt.href)
	}

	// 两种写法解析后相同，去重时视为同一帖子
	a, _ := b.Resolve("https://GAME.naver.com/lounge/sena_rebirth/board/3/9")
	c, _ := b.Resolve("/lounge/sena_rebirth/board/3/9")
	assert.Equal(t, a, c)
	assert.Error(t, err)
}
