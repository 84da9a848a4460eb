// Package notice emits and parses the JSON notices a host application
// receives from the network monitor.
package notice

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// TimestampFormat is RFC 3339 with millisecond precision, always UTC.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

const (
	TypeNetworkChanged = "NetworkChanged"
	TypeNetworkIDError = "NetworkIDError"
)

var (
	ErrNoNoticeType     = errors.New("notice: missing noticeType")
	ErrDataMissing      = errors.New("notice: no data to encode diagnostic message")
	ErrTimestampMissing = errors.New("notice: timestamp missing")
)

// Notice is a single host-facing event.
type Notice struct {
	NoticeType string                 `json:"noticeType"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  string                 `json:"timestamp,omitempty"`
}

// DiagnosticMessage is a notice flattened for a diagnostics log.
type DiagnosticMessage struct {
	Message   string
	Timestamp string
}

// Parse decodes one notice line.
func Parse(line []byte) (Notice, error) {
	var n Notice
	if err := json.Unmarshal(line, &n); err != nil {
		return Notice{}, fmt.Errorf("notice: decode: %w", err)
	}
	if n.NoticeType == "" {
		return Notice{}, ErrNoNoticeType
	}
	return n, nil
}

// DiagnosticMessage renders the notice as "<type>: <json data>".
func (n Notice) DiagnosticMessage() (DiagnosticMessage, error) {
	if n.Data == nil {
		return DiagnosticMessage{}, ErrDataMissing
	}
	data, err := json.Marshal(n.Data)
	if err != nil {
		return DiagnosticMessage{}, fmt.Errorf("notice: encode data: %w", err)
	}
	if n.Timestamp == "" {
		return DiagnosticMessage{}, ErrTimestampMissing
	}
	return DiagnosticMessage{
		Message:   n.NoticeType + ": " + string(data),
		Timestamp: n.Timestamp,
	}, nil
}

// HandlerFunc receives each encoded notice line, without a trailing newline.
type HandlerFunc func(line []byte)

// Emitter serializes notices and forwards them to a host handler. Emit is
// safe for concurrent use; the handler is never called concurrently.
type Emitter struct {
	mu      sync.Mutex
	handler HandlerFunc
	now     func() time.Time
}

// NewEmitter returns an emitter forwarding to handler. A nil handler drops
// notices.
func NewEmitter(handler HandlerFunc) *Emitter {
	return &Emitter{handler: handler, now: time.Now}
}

func (e *Emitter) Emit(noticeType string, data map[string]interface{}) error {
	if noticeType == "" {
		return ErrNoNoticeType
	}
	if e == nil || e.handler == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	line, err := json.Marshal(Notice{
		NoticeType: noticeType,
		Data:       data,
		Timestamp:  e.now().UTC().Format(TimestampFormat),
	})
	if err != nil {
		return fmt.Errorf("notice: encode %s: %w", noticeType, err)
	}
	e.handler(line)
	return nil
}
