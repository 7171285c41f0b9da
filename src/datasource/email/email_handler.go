// email_handler.go
package email

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"MovieEDA/src/datasource/file"
)

// ====================== 邮件处理器实现 ======================

// ArchiveAttachmentHandler 保存邮件中的数据集附件(.zip/.csv/.xlsx)
type ArchiveAttachmentHandler struct {
	TargetSubject string            // 目标邮件主题关键词
	DataDir       string            // 附件保存目录
	OnSaved       func(path string) // 每保存一个附件调用一次，可以为 nil
	processedUIDs map[uint32]bool   // 已处理邮件UID记录
	mu            sync.RWMutex      // 保护processedUIDs的读写锁
	log           *slog.Logger
}

func NewArchiveAttachmentHandler(subject, dataDir string, log *slog.Logger) *ArchiveAttachmentHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ArchiveAttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		processedUIDs: make(map[uint32]bool),
		log:           log,
	}
}

// isProcessed 检查邮件是否已处理过（线程安全）
func (h *ArchiveAttachmentHandler) isProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *ArchiveAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 保存邮件中的数据集附件，同一 UID 只处理一次
func (h *ArchiveAttachmentHandler) Handle(email *Email) error {
	if h.isProcessed(email.UID) {
		return nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		h.log.Debug("跳过主题不匹配的邮件", "subject", email.Subject)
		return nil
	}

	h.log.Info("处理邮件", "subject", email.Subject, "from", email.From,
		"date", email.Date.Format("2006-01-02 15:04:05"))

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	var saved []string
	for _, attachment := range email.Attachments {
		if !file.Supported(attachment.Filename) {
			continue
		}

		// 只保留文件名，防止附件名带路径
		filePath := filepath.Join(h.DataDir, filepath.Base(attachment.Filename))
		if err := os.WriteFile(filePath, attachment.Content, 0644); err != nil {
			return fmt.Errorf("保存附件失败: %w", err)
		}
		h.log.Info("附件已保存", "path", filePath, "bytes", len(attachment.Content))
		saved = append(saved, filePath)
	}

	if len(saved) == 0 {
		h.log.Warn("邮件中没有数据集附件", "subject", email.Subject)
		return nil
	}

	h.markAsProcessed(email.UID)
	if h.OnSaved != nil {
		for _, p := range saved {
			h.OnSaved(p)
		}
	}
	return nil
}
