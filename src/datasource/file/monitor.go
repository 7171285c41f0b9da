// monitor.go
package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控目录中新出现或被改写的数据文件
type FileMonitor struct {
	watchDir string
	watcher  *fsnotify.Watcher
	lastMod  map[string]time.Time
	mu       sync.Mutex
	log      *slog.Logger
}

func NewFileMonitor(dir string, log *slog.Logger) (*FileMonitor, error) {
	if log == nil {
		log = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("监控目录 %s 失败: %w", dir, err)
	}

	return &FileMonitor{
		watchDir: dir,
		watcher:  watcher,
		lastMod:  make(map[string]time.Time),
		log:      log,
	}, nil
}

// Watch 阻塞直到 ctx 结束，每个 .zip/.csv/.xlsx 文件的新版本调用一次 handler
// handler 按事件顺序串行执行
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	defer m.watcher.Close()
	m.log.Info("开始监控目录", "dir", m.watchDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !Supported(event.Name) {
				continue
			}
			if m.isNew(event.Name) {
				m.log.Info("发现新文件", "path", event.Name)
				handler(event.Name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// isNew 判断文件修改时间是否晚于上次处理时
func (m *FileMonitor) isNew(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.lastMod[path]; ok && !info.ModTime().After(last) {
		return false
	}
	m.lastMod[path] = info.ModTime()
	return true
}
