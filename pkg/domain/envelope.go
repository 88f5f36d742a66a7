package domain

import (
	"fmt"
	"time"
)

// InvokeError is the failure half of an envelope. A non-nil InvokeError marks
// the invocation as failed regardless of Status.
type InvokeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

func (e *InvokeError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Type, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Envelope is the normalized output of any tool or model invocation.
type Envelope struct {
	Status  int          `json:"status"`
	Payload any          `json:"payload,omitempty"`
	Text    string       `json:"text,omitempty"`
	Items   []any        `json:"items,omitempty"`
	Error   *InvokeError `json:"error,omitempty"`
}

// Failed reports whether the envelope carries the failure signal.
func (e *Envelope) Failed() bool {
	return e == nil || e.Error != nil
}

// ErrorEnvelope builds a failed envelope from an error value.
func ErrorEnvelope(errType string, err error) *Envelope {
	return &Envelope{Error: &InvokeError{Type: errType, Message: err.Error()}}
}

// Context returns the envelope as the map exposed to templates and
// predicates under the "result"/"output" keys.
func (e *Envelope) Context() map[string]any {
	if e == nil {
		return nil
	}
	m := map[string]any{
		"status":  e.Status,
		"payload": e.Payload,
		"text":    e.Text,
	}
	if e.Items != nil {
		m["items"] = e.Items
	}
	if e.Error != nil {
		m["error"] = map[string]any{
			"type":    e.Error.Type,
			"message": e.Error.Message,
			"status":  e.Error.Status,
		}
	} else {
		m["error"] = nil
	}
	return m
}

// ModelCall carries everything a model client needs for one generation.
type ModelCall struct {
	NodeID      string
	Prompt      map[string]string // role -> rendered content
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Message is one conversation-memory entry threaded through state["messages"].
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
