package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀，例如 EDA_INTERIM_DIR
const EnvPrefix = "EDA"

// LogConfig 日志配置
type LogConfig struct {
	Name    string `json:"name" envconfig:"NAME"`                                                            // 日志文件路径，空表示只输出到终端
	Level   string `json:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"` // 日志级别
	Format  string `json:"format" envconfig:"FORMAT" validate:"omitempty,oneof=text json"`                   // 输出格式
	MaxSize string `json:"max_size" envconfig:"MAX_SIZE"`                                                    // 轮转阈值，如 "10 * 1024 * 1024"
}

// EmailConfig 数据集邮箱配置
type EmailConfig struct {
	Server        string   `json:"server" envconfig:"SERVER"`                 // 邮件服务器地址
	Username      string   `json:"username" envconfig:"USERNAME"`             // 邮箱用户名
	Password      string   `json:"password" envconfig:"PASSWORD"`             // 邮箱密码
	TargetSubject string   `json:"target_subject" envconfig:"TARGET_SUBJECT"` // 需要匹配的邮件主题
	CheckInterval Duration `json:"check_interval" envconfig:"CHECK_INTERVAL"` // 检查新邮件的间隔时间
}

// SendEmailConfig 清洗结果回传邮箱配置
type SendEmailConfig struct {
	Server   string `json:"server" envconfig:"SERVER"`
	Username string `json:"username" envconfig:"USERNAME"`
	Password string `json:"password" envconfig:"PASSWORD"`
	To       string `json:"to" envconfig:"TO" validate:"omitempty,email"`
	Subject  string `json:"subject" envconfig:"SUBJECT"`
}

// Config 结构体定义了应用程序的配置结构
type Config struct {
	RawDir     string `json:"raw_dir" envconfig:"RAW_DIR" validate:"required"`         // 压缩包解压目录
	WatchDir   string `json:"watch_dir" envconfig:"WATCH_DIR"`                         // watch/fetch 的收件目录
	InterimDir string `json:"interim_dir" envconfig:"INTERIM_DIR" validate:"required"` // 中间结果保存目录
	InputPath  string `json:"input_path" envconfig:"INPUT_PATH"`                       // clean 命令的输入文件
	OutputName string `json:"output_name" envconfig:"OUTPUT_NAME" validate:"required"` // clean 命令的输出名
	SheetName  string `json:"sheet_name" envconfig:"SHEET_NAME"`                       // xlsx 输入的工作表，空为第一个
	HeaderRow  int    `json:"header_row" envconfig:"HEADER_ROW" validate:"gte=0"`      // xlsx 表头所在行
	Encoding   string `json:"encoding" envconfig:"ENCODING"`                           // CSV 输入编码
	ExportXLSX bool   `json:"export_xlsx" envconfig:"EXPORT_XLSX"`                     // 持久化时同时导出 xlsx

	Log       LogConfig       `json:"log" envconfig:"LOG"`
	Email     EmailConfig     `json:"email" envconfig:"EMAIL"`
	SendEmail SendEmailConfig `json:"send_email" envconfig:"SEND_EMAIL"`
}

// MissingConfig 缺失值处理步骤
type MissingConfig struct {
	Method    string  `json:"method" yaml:"method"` // 空表示跳过该步骤
	FillValue *Scalar `json:"fill_value" yaml:"fill_value"`
	Axis      int     `json:"axis" yaml:"axis" validate:"oneof=0 1"`
	Thresh    *int    `json:"thresh" yaml:"thresh" validate:"omitempty,gte=0"`
}

// PipelineConfig 清洗流水线配置
type PipelineConfig struct {
	Missing  MissingConfig `json:"missing" yaml:"missing"`
	Features []string      `json:"features" yaml:"features" validate:"dive,required"` // 空表示保留全部列
	Persist  bool          `json:"persist" yaml:"persist"`                            // 每个阶段都保存中间结果
}

var (
	once             sync.Once
	instance         *Config
	pipelineInstance *PipelineConfig
	loadErr          error
)

// Default 返回默认配置
func Default() *Config {
	return &Config{
		RawDir:     filepath.Join("data", "raw"),
		WatchDir:   filepath.Join("data", "inbox"),
		InterimDir: filepath.Join("data", "interim"),
		InputPath:  filepath.Join("data", "raw", "TMDB_movie_dataset_v11.csv"),
		OutputName: "cleaned_df",
		Log: LogConfig{
			Name:    "app.log",
			Level:   "info",
			Format:  "text",
			MaxSize: "10 * 1024 * 1024",
		},
		Email: EmailConfig{
			CheckInterval: Duration(5 * time.Minute),
		},
	}
}

// LoadConfig 只加载一次，之后返回缓存的结果
func LoadConfig(folder, file, pipelineFile string) (*Config, *PipelineConfig, error) {
	once.Do(func() {
		instance, pipelineInstance, loadErr = Load(folder, file, pipelineFile)
	})
	return instance, pipelineInstance, loadErr
}

// Load 读取应用配置与流水线配置，环境变量覆盖文件中的值
// 文件不存在时使用默认值；pipelineFile 可以是 JSON 或 YAML。
func Load(folder, file, pipelineFile string) (*Config, *PipelineConfig, error) {
	configData, err := readOptional(filepath.Join(folder, file))
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	pipelinePath := filepath.Join(folder, pipelineFile)
	pipelineData, err := readOptional(pipelinePath)
	if err != nil {
		return nil, nil, fmt.Errorf("读取流水线配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	pcfgChan := make(chan *PipelineConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parsePipelineConfig(pipelineData, isYAML(pipelinePath), pcfgChan, errChan)

	cfg, pcfg, err := waitForResults(cfgChan, pcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, nil, fmt.Errorf("读取环境变量失败: %w", err)
	}

	if err := Validate(cfg, pcfg); err != nil {
		return nil, nil, err
	}
	return cfg, pcfg, nil
}

// Validate 校验配置结构
func Validate(cfg *Config, pcfg *PipelineConfig) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	if pcfg != nil {
		if err := v.Struct(pcfg); err != nil {
			return fmt.Errorf("流水线配置校验失败: %w", err)
		}
	}
	return nil
}

// readOptional 读取文件，不存在时返回 nil
func readOptional(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	cfg := Default()
	if len(data) > 0 {
		if err := json.Unmarshal(data, cfg); err != nil {
			errChan <- fmt.Errorf("解析Config失败: %w", err)
			return
		}
	}
	resultChan <- cfg
}

func parsePipelineConfig(data []byte, asYAML bool, resultChan chan<- *PipelineConfig, errChan chan<- error) {
	var pcfg PipelineConfig
	if len(data) > 0 {
		var err error
		if asYAML {
			err = yaml.Unmarshal(data, &pcfg)
		} else {
			err = json.Unmarshal(data, &pcfg)
		}
		if err != nil {
			errChan <- fmt.Errorf("解析PipelineConfig失败: %w", err)
			return
		}
	}
	resultChan <- &pcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	pcfgChan <-chan *PipelineConfig,
	errChan <-chan error,
) (*Config, *PipelineConfig, error) {
	var (
		cfg  *Config
		pcfg *PipelineConfig
		errs []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case p := <-pcfgChan:
			pcfg = p
		case err := <-errChan:
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, nil, fmt.Errorf("配置加载遇到错误: %w", errors.Join(errs...))
	}
	if cfg == nil || pcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}
	return cfg, pcfg, nil
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.Decode(s)
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Decode 实现envconfig.Decoder接口
func (d *Duration) Decode(value string) error {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Scalar 接受字符串、数字或布尔的配置值，统一保存为字符串
type Scalar string

// UnmarshalJSON 字符串按原样保存，其它标量保存其字面量
func (s *Scalar) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.(type) {
	case float64, bool:
		*s = Scalar(strings.TrimSpace(string(data)))
		return nil
	default:
		return fmt.Errorf("fill_value must be a string, number or bool, got %s", data)
	}
}

// Ptr 返回指针指向的值的副本，nil 返回 nil
func (s *Scalar) Ptr() *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
