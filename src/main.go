package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"MovieEDA/src/config"
	"MovieEDA/src/storage"
)

// 退出码
const (
	ExitSuccess      = 0
	ExitRuntimeError = 1
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(ExitRuntimeError)
	}
}

// app 每次命令运行共享的依赖
type app struct {
	configDir    string
	configFile   string
	pipelineFile string
	verbose      bool

	cfg    *config.Config
	pcfg   *config.PipelineConfig
	logger *storage.Logger
	log    *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "eda",
		Short: "MovieEDA - 电影数据集的清洗与探索分析",
		Long: `eda 读入 TMDB 电影数据集(.zip/.csv/.xlsx)，完成行过滤、列删除、
缺失值处理与特征选择，并输出描述统计。

Examples:
  # 按配置清洗数据集
  eda clean data/raw/TMDB_movie_dataset_v11.csv

  # 查看列类型
  eda inspect --kind types data/interim/cleaned_df.csv

  # 监控收件目录，新文件到达后自动清洗
  eda watch`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.logger != nil {
				return a.logger.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "./config", "配置文件目录")
	root.PersistentFlags().StringVar(&a.configFile, "config", "config.json", "应用配置文件名")
	root.PersistentFlags().StringVar(&a.pipelineFile, "pipeline", "pipeline.yaml", "流水线配置文件名(JSON 或 YAML)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "输出调试日志")

	root.AddCommand(
		a.cleanCmd(),
		a.ingestCmd(),
		a.imputeCmd(),
		a.selectCmd(),
		a.inspectCmd(),
		a.analyzeCmd(),
		a.watchCmd(),
		a.fetchCmd(),
	)
	return root
}

// setup 加载配置并初始化日志，日志只在这里配置一次
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, pcfg, err := config.Load(a.configDir, a.configFile, a.pipelineFile)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := storage.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}

	a.cfg, a.pcfg, a.logger = cfg, pcfg, logger
	a.log = logger.With("run_id", uuid.NewString(), "command", cmd.Name())
	slog.SetDefault(a.log)
	return nil
}

// signalContext 返回收到 SIGINT/SIGTERM 时取消的 ctx，SIGHUP 重新打开日志文件
func (a *app) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigChan)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				switch sig {
				case syscall.SIGHUP:
					a.log.Info("收到 SIGHUP，重新打开日志文件")
					if err := a.logger.Reopen(); err != nil {
						a.log.Error("重新打开日志失败", "error", err)
					}
				default:
					a.log.Info("收到退出信号", "signal", sig.String())
					cancel()
					return
				}
			}
		}
	}()
	return ctx, cancel
}
