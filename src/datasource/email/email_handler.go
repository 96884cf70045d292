// email_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"YieldCurvePCA/src/storage"
)

// AttachmentHandler saves yield-table attachments (.csv / .xlsx) from
// subject-matched mail into the data directory.
type AttachmentHandler struct {
	TargetSubject string
	DataDir       string
	processedUIDs map[uint32]bool
	mu            sync.RWMutex
}

func NewAttachmentHandler(subject, dataDir string) *AttachmentHandler {
	return &AttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		processedUIDs: make(map[uint32]bool),
	}
}

func (h *AttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

func (h *AttachmentHandler) markProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle saves the matching attachments of one mail and returns their
// paths. Mail already handled, or with a non-matching subject, is skipped
// without error.
func (h *AttachmentHandler) Handle(e *Email, logger *storage.Logger) ([]string, error) {
	if h.IsProcessed(e.UID) {
		return nil, nil
	}
	if h.TargetSubject != "" && !strings.Contains(e.Subject, h.TargetSubject) {
		logger.Debug(fmt.Sprintf("skipping mail with unrelated subject: %s", e.Subject))
		return nil, nil
	}

	logger.Info(fmt.Sprintf("handling mail %q from %s (%s)",
		e.Subject, e.From, e.Date.Format("2006-01-02 15:04:05")))

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	var saved []string
	for _, a := range e.Attachments {
		ext := strings.ToLower(filepath.Ext(a.Filename))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}
		// keep only the base name, attachment names are untrusted input
		path := filepath.Join(h.DataDir, filepath.Base(a.Filename))
		if err := os.WriteFile(path, a.Content, 0644); err != nil {
			return saved, fmt.Errorf("save attachment %s: %w", a.Filename, err)
		}
		logger.Info("saved yield table: " + path)
		saved = append(saved, path)
	}

	if len(saved) > 0 {
		h.markProcessed(e.UID)
	}
	return saved, nil
}
