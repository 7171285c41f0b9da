// client.go
package email

import (
	// 标准库导入
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	// 第三方库导入
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/jordan-wright/email"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	// 项目内部导入
	"MovieEDA/src/config"
	"MovieEDA/src/errs"
)

/******************** 常量定义 ********************/
const (
	MaxFetchMessages   = 50             // 单次最大获取邮件数量，数据集附件较大
	FetchBufferSize    = 10             // 邮件获取通道缓冲区大小
	RecentMailDuration = 72 * time.Hour // 判定为"新邮件"的时间范围
)

/******************** 接口定义 ********************/

// MailService 邮件服务核心接口
type MailService interface {
	Connect() error
	Disconnect()
	// FetchUnreadEmails 获取主题包含 subject 的未读邮件
	FetchUnreadEmails(subject string) ([]*Email, error)
}

// EmailHandler 邮件处理器接口
type EmailHandler interface {
	Handle(email *Email) error
}

/******************** 数据结构 ********************/

// Email 邮件基础数据结构
type Email struct {
	UID         uint32        // 邮件唯一标识符(IMAP UID)
	Date        time.Time     // 邮件发送时间
	From        string        // 发件人信息(已解码)
	Subject     string        // 邮件主题(已解码)
	Attachments []*Attachment // 邮件附件列表
}

// Attachment 邮件附件数据结构
type Attachment struct {
	Filename string // 附件文件名(已解码)
	Content  []byte // 附件二进制内容
}

/******************** 邮件客户端实现 ********************/

// EmailClient IMAP邮件客户端
type EmailClient struct {
	server    string
	username  string
	password  string
	client    *client.Client
	mu        sync.Mutex
	connected bool
	log       *slog.Logger
}

// NewEmailClient 由配置创建邮件客户端，server 形如 "imap.qq.com:993"
func NewEmailClient(cfg config.EmailConfig, log *slog.Logger) *EmailClient {
	if log == nil {
		log = slog.Default()
	}
	return &EmailClient{
		server:   cfg.Server,
		username: cfg.Username,
		password: cfg.Password,
		log:      log,
	}
}

// Connect 建立TLS连接并登录，已有连接仍可用时直接返回
func (s *EmailClient) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == "" {
		return fmt.Errorf("email.server is empty: %w", errs.ErrConfiguration)
	}

	if s.connected {
		if _, err := s.client.Capability(); err == nil {
			return nil
		}
		// 连接已失效则重置
		_ = s.client.Logout()
		s.client = nil
		s.connected = false
	}

	c, err := client.DialTLS(s.server, nil)
	if err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}
	if err := c.Login(s.username, s.password); err != nil {
		_ = c.Logout()
		return fmt.Errorf("登录失败: %w", err)
	}

	s.client = c
	s.connected = true
	s.log.Debug("已连接邮件服务器", "server", s.server)
	return nil
}

// Disconnect 断开连接
func (s *EmailClient) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		_ = s.client.Logout()
		s.client = nil
	}
	s.connected = false
}

// FetchUnreadEmails 获取最近的未读邮件，主题过滤交给服务器
func (s *EmailClient) FetchUnreadEmails(subject string) ([]*Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, fmt.Errorf("未连接到邮件服务器")
	}

	if _, err := s.client.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("选择邮箱失败: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = time.Now().Add(-RecentMailDuration)
	if subject != "" {
		criteria.Header.Add("Subject", subject)
	}

	ids, err := s.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("搜索邮件失败: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxFetchMessages {
		// 保留最新的邮件
		ids = ids[len(ids)-MaxFetchMessages:]
	}
	return s.fetchMessages(ids)
}

// fetchMessages 获取指定序号的邮件内容
func (s *EmailClient) fetchMessages(ids []uint32) ([]*Email, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchInternalDate,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, FetchBufferSize)
	done := make(chan error, 1)
	go func() {
		done <- s.client.Fetch(seqset, items, messages)
	}()

	var emails []*Email
	for msg := range messages {
		r := msg.GetBody(section)
		if r == nil {
			s.log.Warn("邮件正文为空", "uid", msg.Uid)
			continue
		}
		e, err := ParseMessage(r, s.log)
		if err != nil {
			s.log.Warn("解析邮件失败", "uid", msg.Uid, "error", err)
			continue
		}
		e.UID = msg.Uid
		if e.Date.IsZero() {
			e.Date = msg.InternalDate
		}
		emails = append(emails, e)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("获取邮件内容失败: %w", err)
	}
	return emails, nil
}

/******************** 邮件解析相关 ********************/

// ParseMessage 解析 RFC 5322 邮件，收集附件
func ParseMessage(r io.Reader, log *slog.Logger) (*Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("创建邮件阅读器失败: %w", err)
	}
	defer mr.Close()

	header := mr.Header
	date, _ := header.Date() // 日期解析错误不影响后续处理

	e := &Email{
		Date:    date,
		From:    decodeHeader(header.Get("From")),
		Subject: decodeHeader(header.Get("Subject")),
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return e, fmt.Errorf("读取邮件分段失败: %w", err)
		}

		h, ok := p.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		if err := parseAttachment(h, p.Body, e); err != nil && log != nil {
			log.Warn("解析附件失败", "subject", e.Subject, "error", err)
		}
	}
	return e, nil
}

func parseAttachment(h *mail.AttachmentHeader, body io.Reader, e *Email) error {
	filename, err := h.Filename()
	if err != nil || filename == "" {
		return fmt.Errorf("无效的附件名")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return fmt.Errorf("读取附件内容失败: %w", err)
	}

	e.Attachments = append(e.Attachments, &Attachment{
		Filename: decodeHeader(filename),
		Content:  buf.Bytes(),
	})
	return nil
}

/******************** 工具函数 ********************/

// decodeHeader 解码 =?charset?encoding?encoded-text?= 形式的邮件头，失败时返回原文
func decodeHeader(header string) string {
	decoder := mime.WordDecoder{CharsetReader: charsetReader}
	decoded, err := decoder.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// charsetReader 将任意 WHATWG 字符集转为 UTF-8，未知字符集原样返回
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(strings.ToLower(charset))
	if err != nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

/******************** 业务逻辑函数 ********************/

// CheckAndProcessEmails 检查邮箱，把主题匹配的最新邮件交给 handler
// 返回被处理的邮件，没有目标邮件时返回 nil
func CheckAndProcessEmails(ctx context.Context, svc MailService, handler EmailHandler, subject string, log *slog.Logger) (*Email, error) {
	startTime := time.Now()
	log.Info("开始检查邮箱", "subject", subject)

	if err := svc.Connect(); err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}
	defer svc.Disconnect()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	emails, err := svc.FetchUnreadEmails(subject)
	if err != nil {
		return nil, fmt.Errorf("获取邮件失败: %w", err)
	}
	if len(emails) == 0 {
		log.Info("没有新邮件")
		return nil, nil
	}

	target := filterLatestTargetEmail(emails, subject)
	if target == nil {
		log.Info("没有目标邮件", "checked", len(emails))
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := handler.Handle(target); err != nil {
		return nil, fmt.Errorf("处理邮件失败: %w", err)
	}

	log.Info("邮件处理完成", "uid", target.UID, "elapsed", time.Since(startTime))
	return target, nil
}

// filterLatestTargetEmail 返回主题包含 keyword 的最新邮件
func filterLatestTargetEmail(emails []*Email, keyword string) *Email {
	var targetEmails []*Email
	for _, e := range emails {
		if strings.Contains(e.Subject, keyword) {
			targetEmails = append(targetEmails, e)
		}
	}
	if len(targetEmails) == 0 {
		return nil
	}

	sort.SliceStable(targetEmails, func(i, j int) bool {
		return targetEmails[i].Date.After(targetEmails[j].Date)
	})
	return targetEmails[0]
}

/******************** 发送结果 ********************/

// SendReport 将清洗后的文件作为附件发送
func SendReport(cfg config.SendEmailConfig, body string, attachments ...string) error {
	if cfg.Server == "" || cfg.To == "" {
		return fmt.Errorf("send_email.server and send_email.to are required: %w", errs.ErrConfiguration)
	}

	e, err := buildReport(cfg, body, attachments...)
	if err != nil {
		return err
	}

	// 确保服务器地址包含端口
	smtpAddr := cfg.Server
	if !strings.Contains(smtpAddr, ":") {
		smtpAddr += ":465" // 默认 SSL 端口
	}
	host, _, err := net.SplitHostPort(smtpAddr)
	if err != nil {
		return fmt.Errorf("invalid smtp address %q: %w", smtpAddr, errs.ErrConfiguration)
	}

	// 发送邮件（显式 TLS）
	if err := e.SendWithTLS(
		smtpAddr,
		smtp.PlainAuth("", cfg.Username, cfg.Password, host),
		&tls.Config{ServerName: host},
	); err != nil {
		return fmt.Errorf("邮件发送失败(Server: %s): %w", smtpAddr, err)
	}
	return nil
}

func buildReport(cfg config.SendEmailConfig, body string, attachments ...string) (*email.Email, error) {
	e := email.NewEmail()
	e.From = fmt.Sprintf("MovieEDA <%s>", cfg.Username)
	e.To = []string{cfg.To}
	e.Subject = cfg.Subject
	if e.Subject == "" {
		e.Subject = "MovieEDA 清洗结果"
	}
	e.Text = []byte(body)

	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("附件文件不存在 %s: %w", filepath.Base(path), errs.ErrNotFound)
		}
		if _, err := e.AttachFile(path); err != nil {
			return nil, fmt.Errorf("附件添加失败: %w", err)
		}
	}
	return e, nil
}
