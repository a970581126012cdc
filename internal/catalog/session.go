package catalog

import (
	"slices"
	"sync"
)

// Session keys read by the catalog guards.
const (
	KeyUser        = "user"
	KeyRoles       = "roles"
	KeyFeatures    = "features"
	KeyMaintenance = "maintenance"
)

// Session is a mutable, concurrency-safe router.Session.
type Session struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewSession returns an empty, signed-out session.
func NewSession() *Session {
	return &Session{values: make(map[string]any)}
}

// Value implements router.Session.
func (s *Session) Value(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// SignIn records userID and its roles.
func (s *Session) SignIn(userID string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[KeyUser] = userID
	s.values[KeyRoles] = slices.Clone(roles)
}

// SignOut forgets the user and roles.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, KeyUser)
	delete(s.values, KeyRoles)
}

// Enable turns a feature flag on.
func (s *Session) Enable(feature string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	features, _ := s.values[KeyFeatures].([]string)
	if !slices.Contains(features, feature) {
		s.values[KeyFeatures] = append(slices.Clone(features), feature)
	}
}

// SetMaintenance toggles maintenance mode.
func (s *Session) SetMaintenance(on bool) {
	s.Set(KeyMaintenance, on)
}
