package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"MovieEDA/src/config"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
)

// String 实现LogLevel的String方法
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Slog 转换为 slog 级别
func (l LogLevel) Slog() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARNING:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel 解析配置中的级别名，无法识别时返回 INFO
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger 日志记录器
// 内部持有日志文件句柄，对外暴露 *slog.Logger；
// 文件可以被 Reopen(SIGHUP) 或 CheckRotate(按大小) 替换而不影响调用方。
type Logger struct {
	*slog.Logger

	path    string
	maxSize int64
	mirror  io.Writer // 同时输出到的终端，nil 表示不输出

	file *os.File   // 日志文件句柄
	mu   sync.Mutex // 互斥锁，保证并发安全
}

// NewLogger 创建新的日志记录器
// 参数:
//
//	cfg: 日志配置，Name 为空时只输出到 stdout
//	mirror: 额外的输出(通常是 os.Stdout)，可以为 nil
//
// 返回值:
//
//	*Logger: 日志记录器实例
//	error: 创建过程中的错误
func NewLogger(cfg config.LogConfig, mirror io.Writer) (*Logger, error) {
	maxSize, err := eval(cfg.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("invalid log max_size %q: %w", cfg.MaxSize, err)
	}

	l := &Logger{
		path:    cfg.Name,
		maxSize: maxSize,
		mirror:  mirror,
	}
	if l.path != "" {
		if err := l.open(); err != nil {
			return nil, err
		}
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level).Slog()}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(l, opts)
	} else {
		handler = slog.NewTextHandler(l, opts)
	}
	l.Logger = slog.New(handler)
	return l, nil
}

// open 打开或创建日志文件，调用方持有锁或处于初始化阶段
func (l *Logger) open() error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建日志目录失败: %w", err)
		}
	}
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("打开日志文件失败: %w", err)
	}
	l.file = file
	return nil
}

// Write 实现 io.Writer，供 slog handler 使用
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mirror != nil {
		_, _ = l.mirror.Write(p)
	}
	if l.file == nil {
		return len(p), nil
	}
	return l.file.Write(p)
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Reopen 重新打开日志文件(外部 logrotate 后收到 SIGHUP 时调用)
func (l *Logger) Reopen() error {
	if l.path == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
	return l.open()
}

// CheckRotate 日志文件超过 max_size 时改名为 name.时间戳.ext 并新建文件
// 返回是否发生了轮转
func (l *Logger) CheckRotate() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil || l.maxSize <= 0 {
		return false, nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() <= l.maxSize {
		return false, nil
	}

	_ = l.file.Close()
	l.file = nil
	if err := rename(l.path, rotatedName(l.path, time.Now())); err != nil {
		// 改名失败时继续写原文件
		if openErr := l.open(); openErr != nil {
			return false, fmt.Errorf("日志轮转失败: %w, 重新打开失败: %w", err, openErr)
		}
		return false, fmt.Errorf("日志轮转失败: %w", err)
	}
	return true, l.open()
}

// rename 轮转时使用，测试中可替换
var rename = os.Rename

func rotatedName(path string, now time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s.%s%s", base, now.Format("20060102150405"), ext)
}

// eval 计算 "10 * 1024 * 1024" 形式的大小表达式，空串表示不轮转
func eval(expr string) (int64, error) {
	if strings.TrimSpace(expr) == "" {
		return 0, nil
	}
	parts := strings.Split(expr, "*")
	var result int64 = 1
	for _, part := range parts {
		num, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0, err
		}
		result *= num
	}
	return result, nil
}
