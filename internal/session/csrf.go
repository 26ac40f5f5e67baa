package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

// IssueCSRF returns the session's anti-forgery token, minting one on first
// call. Reissuing is idempotent on purpose: rotating the token would break
// forms still open in other tabs of the same session.
func (s *Session) IssueCSRF() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.csrfToken == "" {
		var b [32]byte
		_, _ = rand.Read(b[:])
		s.csrfToken = hex.EncodeToString(b[:])
	}
	return s.csrfToken
}

// ValidateCSRF compares a candidate against the session token in constant
// time. False when no token was ever issued or the candidate is empty.
func (s *Session) ValidateCSRF(candidate string) bool {
	s.mu.Lock()
	token := s.csrfToken
	s.mu.Unlock()

	if token == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1
}
