// data.go
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"MovieEDA/src/cleaning"
	"MovieEDA/src/config"
	"MovieEDA/src/datasource/file"
	"MovieEDA/src/features"
	"MovieEDA/src/missing"
	"MovieEDA/src/storage"
	"MovieEDA/src/table"
)

// 流水线各阶段持久化时使用的名称
const (
	MissingStageName = "missing_handled"
	FeatureStageName = "features_selected"
)

// DataProcessor 读入 → 清洗 → 缺失值处理 → 特征选择 → 保存
type DataProcessor struct {
	cfg      *config.Config
	pcfg     *config.PipelineConfig
	store    *storage.Store
	missing  *missing.Handler
	features *features.Handler
	log      *slog.Logger
}

// Result 一次运行的结果
type Result struct {
	Source  string
	Table   *table.Table
	Path    string
	Elapsed time.Duration
}

func NewDataProcessor(cfg *config.Config, pcfg *config.PipelineConfig, log *slog.Logger) *DataProcessor {
	if log == nil {
		log = slog.Default()
	}
	if pcfg == nil {
		pcfg = &config.PipelineConfig{}
	}
	store := storage.NewStore(cfg.InterimDir, cfg.ExportXLSX, log)
	return &DataProcessor{
		cfg:      cfg,
		pcfg:     pcfg,
		store:    store,
		missing:  missing.NewHandler(missing.FromConfig(pcfg.Missing), store, log),
		features: features.NewHandler(store, log),
		log:      log,
	}
}

// Store 返回输出目录
func (p *DataProcessor) Store() *storage.Store {
	return p.store
}

// IngestOptions 由配置得到读入参数
func IngestOptions(cfg *config.Config, log *slog.Logger) file.Options {
	return file.Options{
		OutputDir: cfg.RawDir,
		Encoding:  cfg.Encoding,
		SheetName: cfg.SheetName,
		HeaderRow: cfg.HeaderRow,
		Log:       log,
	}
}

// Run 处理 input(.zip/.csv/.xlsx)，结果保存为 <interim_dir>/<output_name>.csv
func (p *DataProcessor) Run(ctx context.Context, input string) (*Result, error) {
	start := time.Now()
	log := p.log.With("input", input)

	t, err := file.Ingest(input, IngestOptions(p.cfg, p.log))
	if err != nil {
		return nil, fmt.Errorf("读入数据失败: %w", err)
	}
	log.Info("读入数据", "rows", t.Nrow(), "cols", t.Ncol())

	stages := []struct {
		name string
		run  func(*table.Table) (*table.Table, error)
		skip bool
	}{
		{name: "clean", run: cleaning.CleanDataset},
		{
			name: "missing",
			run: func(t *table.Table) (*table.Table, error) {
				return p.missing.HandleMissingValues(t, p.pcfg.Persist, MissingStageName)
			},
			skip: p.pcfg.Missing.Method == "",
		},
		{
			name: "features",
			run: func(t *table.Table) (*table.Table, error) {
				return p.features.ExecuteSelection(t, p.pcfg.Features, p.pcfg.Persist, FeatureStageName)
			},
			skip: len(p.pcfg.Features) == 0,
		},
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stage.skip {
			log.Debug("跳过阶段", "stage", stage.name)
			continue
		}
		if t, err = stage.run(t); err != nil {
			return nil, fmt.Errorf("阶段 %s 失败: %w", stage.name, err)
		}
		log.Info("阶段完成", "stage", stage.name, "rows", t.Nrow(), "cols", t.Ncol())
	}

	path, err := p.store.Save(p.cfg.OutputName, t)
	if err != nil {
		return nil, err
	}

	res := &Result{Source: input, Table: t, Path: path, Elapsed: time.Since(start)}
	log.Info("处理完成", "output", path, "elapsed", res.Elapsed)
	return res, nil
}
