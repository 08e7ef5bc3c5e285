package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/agritrace/internal/model"
)

// MemoryStore is an in-process Store used by DB_DRIVER=memory and by the
// tests. It enforces the same unique keys as the SQL schema. Records are
// copied on the way in and out so callers never share group pointers
// with the store.
type MemoryStore struct {
	mu sync.RWMutex

	users      map[string]*model.User // by id
	emails     map[string]string      // email -> id
	usernames  map[string]string      // username -> id
	crops      map[string]*model.CropRecord
	cropOrder  []string
	deliveries map[int64]string // delivery number -> crop id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*model.User),
		emails:     make(map[string]string),
		usernames:  make(map[string]string),
		crops:      make(map[string]*model.CropRecord),
		deliveries: make(map[int64]string),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := s.emails[u.Email]; ok {
		return ErrEmailExists
	}
	if _, ok := s.usernames[u.Username]; ok {
		return ErrUsernameExists
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	s.users[u.ID] = &cp
	s.emails[u.Email] = u.ID
	s.usernames[u.Username] = u.ID
	return nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) CreateCrop(_ context.Context, c *model.CropRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.crops[c.CropID]; ok {
		return ErrCropExists
	}
	cp := cloneCrop(*c)
	cp.DistributorGroup, cp.RetailerGroup = nil, nil
	s.crops[c.CropID] = &cp
	s.cropOrder = append(s.cropOrder, c.CropID)
	return nil
}

func (s *MemoryStore) GetCrop(_ context.Context, cropID string) (*model.CropRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.crops[cropID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneCrop(*c)
	return &cp, nil
}

func (s *MemoryStore) FindCrops(_ context.Context, cropID string) ([]model.CropRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.CropRecord{}
	if c, ok := s.crops[cropID]; ok {
		out = append(out, cloneCrop(*c))
	}
	return out, nil
}

func (s *MemoryStore) SetDistributor(_ context.Context, cropID string, g model.DistributorGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.crops[cropID]
	if !ok {
		return ErrNotFound
	}
	if owner, taken := s.deliveries[g.DistributorDeliveryNumber]; taken && owner != cropID {
		return ErrDeliveryNumberTaken
	}
	if c.DistributorGroup != nil {
		delete(s.deliveries, c.DistributorDeliveryNumber)
	}
	s.deliveries[g.DistributorDeliveryNumber] = cropID
	c.DistributorGroup = &g
	return nil
}

func (s *MemoryStore) SetRetailer(_ context.Context, cropID string, g model.RetailerGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.crops[cropID]
	if !ok {
		return ErrNotFound
	}
	c.RetailerGroup = &g
	return nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, g model.Group, userID string) ([]model.CropRecord, error) {
	if _, err := ownerColumn(g); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.CropRecord{}
	for _, id := range s.cropOrder {
		c := s.crops[id]
		if c.Owner(g) == userID {
			out = append(out, cloneCrop(*c))
		}
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func cloneCrop(c model.CropRecord) model.CropRecord {
	if c.DistributorGroup != nil {
		d := *c.DistributorGroup
		c.DistributorGroup = &d
	}
	if c.RetailerGroup != nil {
		r := *c.RetailerGroup
		c.RetailerGroup = &r
	}
	return c
}
