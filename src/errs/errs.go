// Package errs 定义整个工具链共用的错误类别
//
// 调用方通过 fmt.Errorf("...: %w", errs.ErrXxx) 包装具体信息，
// 上层使用 errors.Is 判断类别。
package errs

import "errors"

var (
	// ErrValidation 缺少必需参数或参数非法(例如 persist 时 name 为空)
	ErrValidation = errors.New("validation error")

	// ErrLookup 请求的列不存在
	ErrLookup = errors.New("lookup error")

	// ErrFormat 输入文件格式不符(扩展名错误，解压后没有表格文件)
	ErrFormat = errors.New("format error")

	// ErrNotFound 期望的文件不存在
	ErrNotFound = errors.New("not found")

	// ErrConfiguration 没有为该扩展名注册 ingestor 等配置问题
	ErrConfiguration = errors.New("configuration error")
)
