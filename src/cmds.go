package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"MovieEDA/src/datasource/email"
	"MovieEDA/src/datasource/file"
	"MovieEDA/src/errs"
	"MovieEDA/src/features"
	"MovieEDA/src/missing"
	"MovieEDA/src/processor"
	"MovieEDA/src/storage"
	"MovieEDA/src/table"
)

// ====================== 流水线 ======================

func (a *app) cleanCmd() *cobra.Command {
	var send bool
	cmd := &cobra.Command{
		Use:   "clean [input]",
		Short: "读入数据集并执行清洗流水线",
		Long: `clean 依次执行行过滤、列删除、缺失值处理与特征选择，
结果保存为 <interim_dir>/<output_name>.csv。未指定 input 时使用配置中的 input_path。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := a.cfg.InputPath
			if len(args) == 1 {
				input = args[0]
			}
			ctx, cancel := a.signalContext(cmd.Context())
			defer cancel()

			res, err := processor.NewDataProcessor(a.cfg, a.pcfg, a.log).Run(ctx, input)
			if err != nil {
				return err
			}
			report := resultReport(res)
			fmt.Fprint(cmd.OutOrStdout(), report)

			if send {
				if err := email.SendReport(a.cfg.SendEmail, report, res.Path); err != nil {
					return err
				}
				a.log.Info("清洗结果已发送", "to", a.cfg.SendEmail.To)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "把结果文件通过邮件发送到 send_email.to")
	return cmd
}

func resultReport(res *processor.Result) string {
	return fmt.Sprintf("%s -> %s (%d rows x %d columns, %s)\n",
		res.Source, res.Path, res.Table.Nrow(), res.Table.Ncol(), res.Elapsed.Round(time.Millisecond))
}

func (a *app) ingestCmd() *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "读入 .zip/.csv/.xlsx 并输出列信息",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.load(args[0])
			if err != nil {
				return err
			}
			if save != "" {
				path, err := a.store().Save(save, t)
				if err != nil {
					return err
				}
				a.log.Info("已保存", "path", path)
			}
			return processor.NewInspector(processor.Inspection{Kind: processor.DataTypes}, a.log).Execute(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "同时保存为 <interim_dir>/<name>.csv")
	return cmd
}

func (a *app) imputeCmd() *cobra.Command {
	var (
		method string
		fill   string
		axis   int
		thresh int
		name   string
	)
	cmd := &cobra.Command{
		Use:   "impute <input>",
		Short: "处理缺失值 (mean/median/mode/constant/drop)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.load(args[0])
			if err != nil {
				return err
			}

			m, _ := missing.ParseMethod(method)
			strategy := missing.Strategy{Method: m, Axis: missing.Axis(axis)}
			if cmd.Flags().Changed("fill") {
				strategy.FillValue = &fill
			}
			if cmd.Flags().Changed("thresh") {
				strategy.Thresh = &thresh
			}

			h := missing.NewHandler(strategy, a.store(), a.log)
			out, err := h.HandleMissingValues(t, name != "", name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows x %d columns -> %d rows x %d columns\n",
				strategy, t.Nrow(), t.Ncol(), out.Nrow(), out.Ncol())
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", string(missing.Mean), "处理方法")
	cmd.Flags().StringVar(&fill, "fill", "", "constant 方法的填充值")
	cmd.Flags().IntVar(&axis, "axis", 0, "drop 方法的方向，0 为行，1 为列")
	cmd.Flags().IntVar(&thresh, "thresh", 0, "drop 方法保留所需的最少非缺失值个数")
	cmd.Flags().StringVar(&name, "name", "", "保存为 <interim_dir>/<name>.csv，空则不保存")
	return cmd
}

func (a *app) selectCmd() *cobra.Command {
	var (
		names []string
		name  string
	)
	cmd := &cobra.Command{
		Use:   "select <input>",
		Short: "按列名选择特征",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.load(args[0])
			if err != nil {
				return err
			}
			out, err := features.NewHandler(a.store(), a.log).ExecuteSelection(t, names, name != "", name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d rows)\n", strings.Join(out.Names(), ","), out.Nrow())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&names, "features", nil, "列名，逗号分隔")
	cmd.Flags().StringVar(&name, "name", "", "保存为 <interim_dir>/<name>.csv，空则不保存")
	_ = cmd.MarkFlagRequired("features")
	return cmd
}

// ====================== 检查与分析 ======================

func (a *app) inspectCmd() *cobra.Command {
	var (
		kind string
		xlsx string
	)
	cmd := &cobra.Command{
		Use:   "inspect <input>",
		Short: "输出列类型(types)或描述统计(summary)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := processor.ParseInspectionKind(kind)
			if err != nil {
				return err
			}
			if k != processor.DataTypes && k != processor.Statistics {
				return fmt.Errorf("inspect 只支持 types 和 summary，其余请使用 analyze: %w", errs.ErrValidation)
			}
			t, err := a.load(args[0])
			if err != nil {
				return err
			}
			if err := processor.NewInspector(processor.Inspection{Kind: k}, a.log).Execute(cmd.OutOrStdout(), t); err != nil {
				return err
			}
			if xlsx != "" {
				if err := processor.ExportSummary(processor.SummaryStatistics(t), xlsx); err != nil {
					return err
				}
				a.log.Info("描述统计已导出", "path", xlsx)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "summary", "types 或 summary")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "同时把描述统计导出到该 xlsx 文件")
	return cmd
}

func (a *app) analyzeCmd() *cobra.Command {
	var (
		kind string
		in   processor.Inspection
	)
	cmd := &cobra.Command{
		Use:   "analyze <input>",
		Short: "单变量/双变量分析",
		Long: `analyze 的 --kind:
  numerical    数值列分布(直方图)，使用 --feature --bins --log
  categorical  类别列频数，使用 --feature
  num-num      两个数值列，使用 --feature --feature2 --corr
  num-cat      按类别列(--feature)分组汇总数值列(--feature2)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := processor.ParseInspectionKind(kind)
			if err != nil {
				return err
			}
			in.Kind = k
			t, err := a.load(args[0])
			if err != nil {
				return err
			}
			return processor.NewInspector(in, a.log).Execute(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "numerical", "分析种类")
	cmd.Flags().StringVar(&in.Feature, "feature", "", "分析的列")
	cmd.Flags().StringVar(&in.Feature2, "feature2", "", "双变量分析的第二列")
	cmd.Flags().IntVar(&in.Bins, "bins", processor.DefaultBins, "直方图分箱数")
	cmd.Flags().BoolVar(&in.Log, "log", false, "直方图使用对数刻度")
	cmd.Flags().BoolVar(&in.Corr, "corr", false, "num-num 输出 Pearson 相关系数")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

// ====================== 常驻任务 ======================

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "监控 watch_dir，新数据集到达后执行清洗流水线",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.signalContext(cmd.Context())
			defer cancel()

			if err := os.MkdirAll(a.cfg.WatchDir, 0755); err != nil {
				return fmt.Errorf("创建监控目录失败: %w", err)
			}
			monitor, err := file.NewFileMonitor(a.cfg.WatchDir, a.log)
			if err != nil {
				return err
			}

			c := a.startCron(nil, 0)
			defer c.Stop()

			return monitor.Watch(ctx, a.process(ctx, cmd))
		},
	}
}

func (a *app) fetchCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "定时检查邮箱，下载数据集附件并执行清洗流水线",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.signalContext(cmd.Context())
			defer cancel()

			client := email.NewEmailClient(a.cfg.Email, a.log)
			handler := email.NewArchiveAttachmentHandler(a.cfg.Email.TargetSubject, a.cfg.WatchDir, a.log)
			handler.OnSaved = a.process(ctx, cmd)

			check := func() {
				if _, err := email.CheckAndProcessEmails(ctx, client, handler, a.cfg.Email.TargetSubject, a.log); err != nil {
					a.log.Error("检查邮件失败", "error", err)
				}
			}

			check()
			if once {
				return nil
			}

			interval := time.Duration(a.cfg.Email.CheckInterval)
			c := a.startCron(check, interval)
			defer c.Stop()

			a.log.Info("邮件检查服务已启动", "interval", interval)
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "只检查一次后退出")
	return cmd
}

// startCron 启动日志轮转检查，job 不为空时按 interval 定时执行
func (a *app) startCron(job func(), interval time.Duration) *cron.Cron {
	c := cron.New()
	if err := c.AddFunc("@every 1m", func() {
		if rotated, err := a.logger.CheckRotate(); err != nil {
			a.log.Error("日志轮转失败", "error", err)
		} else if rotated {
			a.log.Info("日志已轮转")
		}
	}); err != nil {
		a.log.Error("添加日志轮转任务失败", "error", err)
	}
	if job != nil && interval > 0 {
		if err := c.AddFunc(fmt.Sprintf("@every %s", interval), job); err != nil {
			a.log.Error("添加定时任务失败", "error", err)
		}
	}
	c.Start()
	return c
}

// process 对到达的数据集执行流水线，失败只记录日志
func (a *app) process(ctx context.Context, cmd *cobra.Command) func(string) {
	p := processor.NewDataProcessor(a.cfg, a.pcfg, a.log)
	return func(path string) {
		res, err := p.Run(ctx, path)
		if err != nil {
			a.log.Error("处理数据集失败", "path", path, "error", err)
			return
		}
		fmt.Fprint(cmd.OutOrStdout(), resultReport(res))
	}
}

// ====================== 辅助 ======================

func (a *app) store() *storage.Store {
	return storage.NewStore(a.cfg.InterimDir, a.cfg.ExportXLSX, a.log)
}

// load 读入待分析的文件，支持压缩包、CSV 与 xlsx
func (a *app) load(path string) (*table.Table, error) {
	return file.Ingest(path, processor.IngestOptions(a.cfg, a.log))
}
