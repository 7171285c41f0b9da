package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"MovieEDA/src/errs"
)

// readConfig CSV 读取选项
type readConfig struct {
	encoding  string
	delimiter rune
}

// Option CSV 读取选项
type Option func(*readConfig)

// WithEncoding 指定输入编码：utf-8(默认)、gbk、gb18030、utf-16
func WithEncoding(name string) Option {
	return func(c *readConfig) { c.encoding = name }
}

// WithDelimiter 指定分隔符，默认逗号
func WithDelimiter(r rune) Option {
	return func(c *readConfig) { c.delimiter = r }
}

// decoderFor 根据编码名返回解码器，UTF-8 时剥离可能存在的 BOM
func decoderFor(name string) (transform.Transformer, error) {
	var enc encoding.Encoding
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "gbk", "gb2312":
		enc = simplifiedchinese.GBK
	case "gb18030":
		enc = simplifiedchinese.GB18030
	case "utf-16", "utf16":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	default:
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, errs.ErrConfiguration)
	}
	return enc.NewDecoder(), nil
}

// ReadCSV 读取带表头的 CSV
func ReadCSV(r io.Reader, opts ...Option) (*Table, error) {
	cfg := readConfig{delimiter: ','}
	for _, opt := range opts {
		opt(&cfg)
	}

	dec, err := decoderFor(cfg.encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(transform.NewReader(r, dec))
	reader.Comma = cfg.delimiter
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %v: %w", err, errs.ErrFormat)
	}
	return FromRecords(records)
}

// WriteCSV 写出 CSV：含表头、无行号列、缺失值为空字段
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
