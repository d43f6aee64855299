package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gocrud/ioc/logging"
)

// Watcher 监听文件配置源，文件变化后重新加载配置。
// Start 阻塞直到 ctx 取消，可以作为托管服务运行。
type Watcher struct {
	config   ReloadableConfiguration
	logger   logging.Logger
	debounce time.Duration
}

// NewWatcher 创建配置文件监听器
func NewWatcher(config ReloadableConfiguration, logger logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Watcher{
		config:   config,
		logger:   logger.WithCategory("config.watch"),
		debounce: 200 * time.Millisecond,
	}
}

// Paths 返回需要监听的文件
func (w *Watcher) Paths() []string {
	var paths []string
	for _, source := range w.config.Sources() {
		if fs, ok := source.(FileSource); ok {
			paths = append(paths, fs.FilePath())
		}
	}
	return paths
}

// Start 开始监听
func (w *Watcher) Start(ctx context.Context) error {
	paths := w.Paths()
	if len(paths) == 0 {
		<-ctx.Done()
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer fw.Close()

	// 监听目录，编辑器保存时常以重命名替换文件
	files := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("config: watch %s: %w", dir, err)
		}
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if _, watched := files[filepath.Clean(event.Name)]; !watched {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := w.config.Reload(); err != nil {
				w.logger.Error("config reload failed", logging.Field{Key: "error", Value: err.Error()})
				continue
			}
			w.logger.Info("config reloaded")
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", logging.Field{Key: "error", Value: err.Error()})
		}
	}
}

// Stop 没有额外的清理工作，监听随 Start 的 ctx 结束
func (w *Watcher) Stop(ctx context.Context) error {
	return nil
}
