package scheduler

import (
	"github.com/LJTian/DevNotes/internal/collector"
	"github.com/LJTian/DevNotes/internal/config"
	"github.com/LJTian/DevNotes/internal/snapshot"
)

// BuildJob 按配置组装采集任务；history 可为 nil
func BuildJob(cfg *config.Config, board *collector.Board, history History) (*Job, *snapshot.FileStore, error) {
	renderer, err := collector.NewRenderer(cfg.Renderer, cfg.RenderOptions(board))
	if err != nil {
		return nil, nil, err
	}
	store := snapshot.NewFileStore(cfg.OutDir, cfg.OutFile)
	return &Job{
		Board:     board,
		Renderer:  renderer,
		Snapshots: snapshot.New(store),
		History:   history,
	}, store, nil
}
