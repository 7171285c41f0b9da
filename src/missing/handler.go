package missing

import (
	"fmt"
	"log/slog"
	"sync"

	"MovieEDA/src/storage"
	"MovieEDA/src/table"
)

// Handler 持有当前的缺失值策略，可随时切换
type Handler struct {
	mu       sync.RWMutex
	strategy Strategy

	store *storage.Store
	log   *slog.Logger
}

// NewHandler 创建处理器，store 为 nil 时不能持久化
func NewHandler(strategy Strategy, store *storage.Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{strategy: strategy, store: store, log: log}
}

// SetStrategy 切换策略
func (h *Handler) SetStrategy(s Strategy) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log.Info("切换缺失值处理策略", "strategy", s.String())
	h.strategy = s
}

// Strategy 返回当前策略
func (h *Handler) Strategy() Strategy {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.strategy
}

// HandleMissingValues 执行当前策略，persist 为 true 时保存到 <base>/<name>.csv
// 无论是否持久化都返回处理后的表
func (h *Handler) HandleMissingValues(t *table.Table, persist bool, name string) (*table.Table, error) {
	if persist {
		if err := h.store.Check(name); err != nil {
			return nil, err
		}
	}

	s := h.Strategy()
	h.log.Info("执行缺失值处理", "strategy", s.String(), "rows", t.Nrow(), "cols", t.Ncol())
	cleaned, err := s.handle(t, h.log)
	if err != nil {
		return nil, fmt.Errorf("缺失值处理失败: %w", err)
	}

	if persist {
		if _, err := h.store.Save(name, cleaned); err != nil {
			return nil, err
		}
	}
	return cleaned, nil
}
