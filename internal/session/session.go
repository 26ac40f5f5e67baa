package session

import (
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const DefaultCookieName = "taskpad_session"

// Session holds per-browser-session state: the CSRF token, the pending
// flash queue and any stashed form state. All access goes through its
// mutex; sessions never synchronize with each other.
type Session struct {
	mu sync.Mutex
	id string

	csrfToken string
	flash     []Message

	formValues map[string]string
	formErrors map[string]string
}

func (s *Session) ID() string { return s.id }

// StashForm stores submitted values and their field errors for exactly one
// subsequent read, so a redirect back to the form can re-render it sticky.
func (s *Session) StashForm(values, errors map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formValues = values
	s.formErrors = errors
}

// TakeForm returns and clears any stashed form state.
func (s *Session) TakeForm() (values, errors map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, errors = s.formValues, s.formErrors
	s.formValues, s.formErrors = nil, nil
	return values, errors
}

// Store resolves session ids to sessions.
type Store interface {
	Get(id string) (*Session, bool)
	Create() *Session
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*Session{}}
}

func (m *MemoryStore) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *MemoryStore) Create() *Session {
	s := &Session{id: uuid.NewString()}
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s
}

// Manager ties sessions to a browser cookie.
type Manager struct {
	store        Store
	cookieName   string
	secureCookie bool
}

func NewManager(store Store, secureCookie bool) *Manager {
	return &Manager{
		store:        store,
		cookieName:   DefaultCookieName,
		secureCookie: secureCookie,
	}
}

// Attach returns the request's session, creating one (and setting the
// cookie) on first contact.
func (m *Manager) Attach(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(m.cookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		if s, ok := m.store.Get(c.Value); ok {
			return s
		}
	}
	s := m.store.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    s.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// Middleware attaches the session to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Attach(w, r)
		next.ServeHTTP(w, r.WithContext(withSessionContext(r.Context(), s)))
	})
}
