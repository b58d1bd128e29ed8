package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/LJTian/DevNotes/internal/scheduler"
	"github.com/LJTian/DevNotes/internal/snapshot"
	"github.com/LJTian/DevNotes/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// HistoryReader *storage.Store 满足该接口
type HistoryReader interface {
	ListLatest(ctx context.Context, board string, limit int) ([]storage.DevNote, error)
	ListRevisions(ctx context.Context, board string, limit int) ([]storage.SnapshotRevision, error)
}

type Server struct {
	board     string
	snapshots snapshot.Store
	history   HistoryReader // 可为 nil
	runner    scheduler.Runner

	authUser string
	authPass string
}

func NewServer(board string, snapshots snapshot.Store, history HistoryReader, runner scheduler.Runner) *Server {
	return &Server{board: board, snapshots: snapshots, history: history, runner: runner}
}

// WithBasicAuth 用户名为空时不启用
func (s *Server) WithBasicAuth(user, pass string) *Server {
	s.authUser = user
	s.authPass = pass
	return s
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	if s.authUser != "" {
		v1.Use(basicAuthMiddleware(s.authUser, s.authPass))
	}
	{
		v1.GET("/devnotes", s.listDevNotes)
		v1.GET("/devnotes/history", s.listHistory)
		v1.GET("/devnotes/revisions", s.listRevisions)
		v1.POST("/collect", s.collect)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		return 20
	}
	return limit
}

// listDevNotes 返回当前快照文件的内容；文件不存在时返回空列表
func (s *Server) listDevNotes(c *gin.Context) {
	content, err := s.snapshots.Read()
	if err != nil && !eris.Is(err, snapshot.ErrNoSnapshot) {
		zap.L().Error("api: read snapshot failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	posts, err := snapshot.Decode(content)
	if err != nil {
		zap.L().Error("api: decode snapshot failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	ok(c, posts)
}

func (s *Server) listHistory(c *gin.Context) {
	if s.history == nil {
		fail(c, http.StatusServiceUnavailable, "history_disabled", "history store is not configured")
		return
	}
	items, err := s.history.ListLatest(c.Request.Context(), s.board, queryLimit(c))
	if err != nil {
		zap.L().Error("api: list history failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	ok(c, items)
}

func (s *Server) listRevisions(c *gin.Context) {
	if s.history == nil {
		fail(c, http.StatusServiceUnavailable, "history_disabled", "history store is not configured")
		return
	}
	items, err := s.history.ListRevisions(c.Request.Context(), s.board, queryLimit(c))
	if err != nil {
		zap.L().Error("api: list revisions failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	ok(c, items)
}

// collect 同步执行一次采集
func (s *Server) collect(c *gin.Context) {
	out, err := s.runner.Run(c.Request.Context())
	if err != nil {
		zap.L().Error("api: manual collect failed", zap.Error(err))
		fail(c, http.StatusBadGateway, "collect_failed", "collect failed, see server logs")
		return
	}
	ok(c, gin.H{"changed": out.Changed, "parsed": out.Parsed})
}
