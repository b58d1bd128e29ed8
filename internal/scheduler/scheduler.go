package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/LJTian/DevNotes/internal/collector"
	"github.com/LJTian/DevNotes/internal/pipeline"
	"github.com/LJTian/DevNotes/internal/processor"
	"github.com/LJTian/DevNotes/internal/snapshot"
	"github.com/LJTian/DevNotes/internal/storage"
	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// History 可选的历史库，*storage.Store 满足该接口
type History interface {
	SaveBatch(ctx context.Context, board string, posts []processor.Post, extras map[string]map[string]any) error
	RecordRevision(ctx context.Context, board, content string, postCount int) (*storage.SnapshotRevision, error)
}

// Job 一次完整采集：渲染 -> 抽取整理 -> 快照比较写入 -> 历史库
type Job struct {
	Board     *collector.Board
	Renderer  collector.Renderer
	Snapshots *snapshot.Snapshotter
	History   History // 可为 nil

	mu sync.Mutex
}

// Run 渲染失败直接返回错误；历史库失败只记日志
func (j *Job) Run(ctx context.Context) (snapshot.Outcome, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	log := zap.L().With(zap.String("board", j.Board.Name), zap.String("renderer", j.Renderer.Name()))
	start := time.Now()

	html, err := j.Renderer.Render(ctx, j.Board.URL)
	if err != nil {
		return snapshot.Outcome{}, eris.Wrapf(err, "render %s", j.Board.URL)
	}

	res, err := pipeline.RunHTML(html, j.Board)
	if err != nil {
		return snapshot.Outcome{}, err
	}
	if counts := res.Extraction.SkipCounts(); len(counts) > 0 {
		fields := make([]zap.Field, 0, len(counts))
		for reason, n := range counts {
			fields = append(fields, zap.Int(string(reason), n))
		}
		log.Debug("skipped elements", fields...)
	}

	out, err := j.Snapshots.WriteIfChanged(j.Snapshots.Load(), res.Posts)
	if err != nil {
		return snapshot.Outcome{}, err
	}

	if out.Changed {
		log.Info("updated devnotes snapshot", zap.Int("parsed", out.Parsed), zap.Duration("took", time.Since(start)))
	} else {
		log.Info("no changes in devnotes snapshot", zap.Int("parsed", out.Parsed), zap.Duration("took", time.Since(start)))
	}

	if j.History != nil {
		j.saveHistory(ctx, log, res, out)
	}
	return out, nil
}

func (j *Job) saveHistory(ctx context.Context, log *zap.Logger, res pipeline.Result, out snapshot.Outcome) {
	if err := j.History.SaveBatch(ctx, j.Board.Name, res.Posts, candidateExtras(res.Extraction)); err != nil {
		log.Error("save devnotes history failed", zap.Error(err))
	}
	if !out.Changed {
		return
	}
	if _, err := j.History.RecordRevision(ctx, j.Board.Name, out.Content, out.Parsed); err != nil {
		log.Error("record snapshot revision failed", zap.Error(err))
	}
}

// candidateExtras 每个 URL 首个命中的策略与原始日期
func candidateExtras(ext collector.Extraction) map[string]map[string]any {
	extras := make(map[string]map[string]any, len(ext.Candidates))
	for _, r := range ext.Results {
		if r.Skip != collector.SkipNone {
			continue
		}
		if _, ok := extras[r.Candidate.URL]; ok {
			continue
		}
		extras[r.Candidate.URL] = map[string]any{
			"strategy": r.Strategy,
			"raw_date": r.Candidate.RawDate,
			"href":     r.Candidate.Href,
		}
	}
	return extras
}

// Runner 供 API 手动触发
type Runner interface {
	Run(ctx context.Context) (snapshot.Outcome, error)
}

// defaultStartupDelay 延迟执行首轮采集，避免与服务启动争抢资源
const defaultStartupDelay = 15 * time.Second

type Scheduler struct {
	cron    *cron.Cron
	job     Runner
	timeout time.Duration

	startupDelay time.Duration
	mu           sync.Mutex
	firstRun     *time.Timer
}

// New timeout 为单次执行的上限，<=0 时不设上限
func New(spec string, job Runner, timeout time.Duration) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:         c,
		job:          job,
		timeout:      timeout,
		startupDelay: defaultStartupDelay,
	}

	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, eris.Wrapf(err, "scheduler: invalid cron spec %q", spec)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()

	s.mu.Lock()
	s.firstRun = time.AfterFunc(s.startupDelay, s.runOnce)
	s.mu.Unlock()
}

// Stop 取消尚未触发的首轮采集，停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.firstRun != nil {
		s.firstRun.Stop()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发采集
func (s *Scheduler) RunOnce(ctx context.Context) (snapshot.Outcome, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.job.Run(ctx)
}

func (s *Scheduler) runOnce() {
	zap.L().Info("start collect job...")
	if _, err := s.RunOnce(context.Background()); err != nil {
		zap.L().Error("collect job failed", zap.Error(err))
		return
	}
	zap.L().Info("collect job done")
}

// Cron 暴露底层调度器，便于查看下次执行时间
func (s *Scheduler) Cron() *cron.Cron {
	return s.cron
}
