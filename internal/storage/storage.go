package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/LJTian/DevNotes/internal/processor"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// DevNote 历史库中的一条帖子，以 URL 为幂等键
type DevNote struct {
	ID       string            `gorm:"primaryKey;size:40" json:"id"`
	Board    string            `gorm:"size:64;index" json:"board"`
	Title    string            `gorm:"size:512" json:"title"`
	URL      string            `gorm:"size:1024;uniqueIndex" json:"url"`
	Date     string            `gorm:"size:32;index" json:"date"` // 规范化后的日期，可能为空或原样文本
	Position int               `json:"position"`                  // 最近一次出现时在列表中的位置，从 0 开始
	Extra    datatypes.JSONMap `gorm:"type:jsonb" json:"extra"`

	FirstSeenAt time.Time `gorm:"index" json:"firstSeenAt"`
	LastSeenAt  time.Time `gorm:"index" json:"lastSeenAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SnapshotRevision 每次快照内容变化记一条
type SnapshotRevision struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Board     string    `gorm:"size:64;index" json:"board"`
	Hash      string    `gorm:"size:64;index" json:"hash"`
	PostCount int       `json:"postCount"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

const (
	listCacheTTL  = 5 * time.Minute
	maxListLimit  = 1000
	titleMaxRunes = 512
)

// NewStore redisAddr 为空时不启用缓存
func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, eris.Wrap(err, "storage: open postgres")
	}

	if err := db.AutoMigrate(&DevNote{}, &SnapshotRevision{}); err != nil {
		return nil, eris.Wrap(err, "storage: migrate")
	}

	s := &Store{DB: db}
	if redisAddr == "" {
		return s, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zap.L().Warn("storage: redis ping failed", zap.String("addr", redisAddr), zap.Error(err))
	}
	s.Redis = rdb

	return s, nil
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

// historyTitle 入库的标题统一为 NFC，同一标题不同编码形式在库里只有一种写法；快照文件不经过这里
func historyTitle(s string) string {
	return truncateRunesDB(norm.NFC.String(toValidUTF8(s)), titleMaxRunes)
}

// cacheKey 一个看板一个 hash，字段为 limit，保存时整体删除即可失效
func cacheKey(board string) string {
	return "devnotes:latest:" + board
}

// newDevNote 由帖子构造入库记录；extra 可为 nil
func newDevNote(board string, pos int, p processor.Post, extra map[string]any, now time.Time) *DevNote {
	n := &DevNote{
		ID:          p.ID(),
		Board:       board,
		Title:       historyTitle(p.Title),
		URL:         p.URL,
		Date:        toValidUTF8(p.Date),
		Position:    pos,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
	if len(extra) > 0 {
		n.Extra = datatypes.JSONMap(extra)
	}
	return n
}

// SaveBatch 保存本轮输出的帖子。已存在的保留 first_seen_at，其余字段更新。
// extras 以 URL 为键，记录抽取时的附加信息（原始日期、命中策略等）。
func (s *Store) SaveBatch(ctx context.Context, board string, posts []processor.Post, extras map[string]map[string]any) error {
	now := time.Now()
	db := s.DB.WithContext(ctx)

	for i, p := range posts {
		n := newDevNote(board, i, p, extras[p.URL], now)

		if err := db.Where("url = ?", n.URL).FirstOrCreate(n).Error; err != nil {
			return eris.Wrapf(err, "storage: save %s", n.URL)
		}
		updates := map[string]any{
			"board":        board,
			"title":        historyTitle(p.Title),
			"date":         toValidUTF8(p.Date),
			"position":     i,
			"last_seen_at": now,
		}
		if extra := extras[p.URL]; len(extra) > 0 {
			updates["extra"] = datatypes.JSONMap(extra)
		}
		if err := db.Model(n).Updates(updates).Error; err != nil {
			return eris.Wrapf(err, "storage: update %s", n.URL)
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Del(ctx, cacheKey(board)).Err(); err != nil {
			zap.L().Warn("storage: invalidate cache failed", zap.String("board", board), zap.Error(err))
		}
	}
	return nil
}

// RevisionHash 快照内容的 sha256
func RevisionHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// RecordRevision 记录一次快照变化
func (s *Store) RecordRevision(ctx context.Context, board, content string, postCount int) (*SnapshotRevision, error) {
	rev := &SnapshotRevision{
		Board:     board,
		Hash:      RevisionHash(content),
		PostCount: postCount,
		Content:   toValidUTF8(content),
	}
	if err := s.DB.WithContext(ctx).Create(rev).Error; err != nil {
		return nil, eris.Wrap(err, "storage: record revision")
	}
	return rev, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 || limit > maxListLimit {
		return def
	}
	return limit
}

// ListLatest 按最近出现时间返回帖子，结果在 Redis 中缓存 5 分钟
func (s *Store) ListLatest(ctx context.Context, board string, limit int) ([]DevNote, error) {
	limit = clampLimit(limit, 20)
	field := strconv.Itoa(limit)

	if s.Redis != nil {
		if bs, err := s.Redis.HGet(ctx, cacheKey(board), field).Bytes(); err == nil {
			var cached []DevNote
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []DevNote
	q := s.DB.WithContext(ctx).Model(&DevNote{})
	if board != "" {
		q = q.Where("board = ?", board)
	}
	if err := q.Order("last_seen_at DESC").Order("position ASC").Limit(limit).Find(&list).Error; err != nil {
		return nil, eris.Wrap(err, "storage: list latest")
	}

	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			key := cacheKey(board)
			pipe := s.Redis.TxPipeline()
			pipe.HSet(ctx, key, field, bs)
			pipe.Expire(ctx, key, listCacheTTL)
			if _, err := pipe.Exec(ctx); err != nil {
				zap.L().Debug("storage: cache write failed", zap.Error(err))
			}
		}
	}

	return list, nil
}

// ListRevisions 最新的快照变化记录在前
func (s *Store) ListRevisions(ctx context.Context, board string, limit int) ([]SnapshotRevision, error) {
	limit = clampLimit(limit, 20)

	var list []SnapshotRevision
	q := s.DB.WithContext(ctx).Model(&SnapshotRevision{})
	if board != "" {
		q = q.Where("board = ?", board)
	}
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, eris.Wrap(err, "storage: list revisions")
	}
	return list, nil
}
