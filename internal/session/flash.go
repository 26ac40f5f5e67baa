package session

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Message is a one-shot notice carried across a redirect.
type Message struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// PushFlash queues a message for the next rendered page.
func (s *Session) PushFlash(severity Severity, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = append(s.flash, Message{Severity: severity, Text: text})
}

// DrainFlash returns all queued messages and clears the queue atomically.
// Each message is delivered exactly once; an empty queue drains to an empty
// slice.
func (s *Session) DrainFlash() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flash
	s.flash = nil
	if out == nil {
		out = []Message{}
	}
	return out
}
