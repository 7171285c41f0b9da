// Package features 按列名投影表
package features

import (
	"fmt"
	"log/slog"

	"MovieEDA/src/storage"
	"MovieEDA/src/table"
)

// Select 按给定顺序保留列，任一列不存在时返回 lookup 错误，不返回部分结果
func Select(t *table.Table, names []string) (*table.Table, error) {
	out, err := t.Select(names...)
	if err != nil {
		return nil, fmt.Errorf("选择特征失败: %w", err)
	}
	return out, nil
}

// Handler 特征选择并可选地持久化
type Handler struct {
	store *storage.Store
	log   *slog.Logger
}

func NewHandler(store *storage.Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, log: log}
}

// ExecuteSelection 选择特征，persist 为 true 时保存到 <base>/<name>.csv
func (h *Handler) ExecuteSelection(t *table.Table, names []string, persist bool, name string) (*table.Table, error) {
	if persist {
		if err := h.store.Check(name); err != nil {
			return nil, err
		}
	}

	selected, err := Select(t, names)
	if err != nil {
		return nil, err
	}
	h.log.Info("已选择特征", "features", names, "rows", selected.Nrow())

	if persist {
		if _, err := h.store.Save(name, selected); err != nil {
			return nil, err
		}
	}
	return selected, nil
}
