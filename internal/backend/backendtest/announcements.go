package backendtest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"proofchest/internal/models"
	"proofchest/internal/repository"

	"github.com/google/uuid"
)

// Announcements is an in-memory announcement store with repository semantics.
type Announcements struct {
	Err error

	mu    sync.Mutex
	items map[string]*models.Announcement
	clock time.Time
}

func NewAnnouncements() *Announcements {
	return &Announcements{
		items: make(map[string]*models.Announcement),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *Announcements) List(context.Context) ([]*models.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]*models.Announcement, 0, len(s.items))
	for _, a := range s.items {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Announcements) GetByID(_ context.Context, id string) (*models.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	a, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Announcements) Create(_ context.Context, a models.Announcement) (*models.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.clock = s.clock.Add(time.Second)
	a.ID = uuid.NewString()
	a.CreatedAt = s.clock
	a.UpdatedAt = s.clock
	s.items[a.ID] = &a
	cp := a
	return &cp, nil
}

func (s *Announcements) Update(_ context.Context, id string, a models.Announcement) (*models.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	existing, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.clock = s.clock.Add(time.Second)
	existing.Title = a.Title
	existing.Description = a.Description
	if a.ImageReference != nil {
		existing.ImageReference = a.ImageReference
	}
	existing.UpdatedAt = s.clock
	cp := *existing
	return &cp, nil
}

func (s *Announcements) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Announcements) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Bucket is an in-memory storage.Bucket.
type Bucket struct {
	BucketName string
	Err        error

	mu      sync.Mutex
	objects map[string][]byte
}

func NewBucket(name string) *Bucket {
	return &Bucket{BucketName: name, objects: make(map[string][]byte)}
}

func (b *Bucket) Name() string { return b.BucketName }

func (b *Bucket) Upload(_ context.Context, key string, r io.Reader) error {
	if b.Err != nil {
		return b.Err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = buf.Bytes()
	return nil
}

func (b *Bucket) PublicURL(key string) string {
	return "http://files.test/uploads/" + b.BucketName + "/" + key
}

func (b *Bucket) Object(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	return data, ok
}

func (b *Bucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}
