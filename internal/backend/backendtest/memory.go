// Package backendtest provides in-memory doubles for the backend package.
package backendtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"proofchest/internal/backend"
	"proofchest/internal/kv"
	"proofchest/internal/models"
	"proofchest/pkg/auth"

	"github.com/google/uuid"
)

// Secret signs every token Memory issues.
const Secret = "backendtest-secret"

// JWTManager validates tokens issued by Memory.
func JWTManager() *auth.JWTManager {
	return auth.NewJWTManager(Secret, time.Hour)
}

// Memory is a networked-mode backend held in maps. Setting Err makes every
// call fail with it, which is how tests simulate an unreachable backend.
type Memory struct {
	Err       error
	UploadErr error
	InsertErr error

	mu       sync.Mutex
	users    map[string]*models.User
	docs     []*models.Document
	files    map[string][]byte
	sessions map[string]string
	jwt      *auth.JWTManager
	clock    time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]*models.User),
		files:    make(map[string][]byte),
		sessions: make(map[string]string),
		jwt:      JWTManager(),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddUser inserts a user directly, bypassing Err.
func (m *Memory) AddUser(username, passwordHash string, isAdmin bool) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    m.tick(),
	}
	m.users[u.ID] = u
	return u
}

func (m *Memory) Mode() backend.Mode { return backend.ModeNetworked }

func (m *Memory) LookupUser(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, backend.ErrNotFound
}

func (m *Memory) LookupUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) CreateUser(_ context.Context, username, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if u.Username == username {
			return nil, backend.ErrAlreadyExists
		}
	}
	u := &models.User{ID: uuid.NewString(), Username: username, PasswordHash: passwordHash, CreatedAt: m.tick()}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *Memory) EstablishSession(_ context.Context, user models.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	token, _, err := m.jwt.GenerateToken(user.ID, user.Username, false)
	if err != nil {
		return "", err
	}
	m.sessions[token] = user.ID
	return token, nil
}

func (m *Memory) EndSession(_ context.Context, _ models.User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.sessions, token)
	return nil
}

func (m *Memory) ResolveSession(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	id, ok := m.sessions[token]
	if !ok {
		return "", backend.ErrNotFound
	}
	return id, nil
}

// SessionUser returns the user id a live token belongs to.
func (m *Memory) SessionUser(token string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.sessions[token]
	return id, ok
}

func (m *Memory) StoreFile(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	m.files[key] = append([]byte(nil), data...)
	return key, nil
}

// File returns stored bytes by key.
func (m *Memory) File(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	return data, ok
}

func (m *Memory) FileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

func (m *Memory) InsertDocument(_ context.Context, doc models.Document) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}
	doc.ID = uuid.NewString()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = m.tick()
	}
	m.docs = append(m.docs, &doc)
	cp := doc
	return &cp, nil
}

func (m *Memory) ListDocuments(_ context.Context, ownerID string, category models.Category) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]*models.Document, 0)
	for i := len(m.docs) - 1; i >= 0; i-- {
		d := m.docs[i]
		if d.OwnerID == ownerID && d.Category == category {
			cp := *d
			result = append(result, &cp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) DeleteDocument(_ context.Context, ownerID, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i, d := range m.docs {
		if d.ID == documentID && d.OwnerID == ownerID {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return backend.ErrNotFound
}

// DocumentCount counts every stored document regardless of owner.
func (m *Memory) DocumentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// KV is a map-backed kv.Store.
type KV struct {
	mu     sync.Mutex
	values map[string]string
}

func NewKV() *KV {
	return &KV{values: make(map[string]string)}
}

func (s *KV) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return v, nil
}

func (s *KV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *KV) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Has reports whether key is present.
func (s *KV) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

var (
	_ backend.Backend = (*Memory)(nil)
	_ kv.Store        = (*KV)(nil)
)
