package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/unitutor-api/internal/models"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	store   map[string][]byte
	deletes []string
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	removed := 0
	for key := range m.store {
		if strings.HasPrefix(key, prefix) {
			delete(m.store, key)
			removed++
		}
	}
	return removed, nil
}

type memoryAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (m *memoryAuditRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, log)
	return nil
}

func (m *memoryAuditRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

type fakeUsers struct {
	users map[string]models.User
}

func (f *fakeUsers) FindByIDs(_ context.Context, ids []string) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok && u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]models.User, len(users))}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

type fakeRoomRepo struct {
	rooms      map[string]*models.Room
	meetings   map[string]int
	created    []*models.Room
	createErr  error
	deleteErr  error
	available  []models.Room
	lastFilter models.RoomAvailabilityFilter
}

func newFakeRoomRepo(rooms ...models.Room) *fakeRoomRepo {
	f := &fakeRoomRepo{rooms: make(map[string]*models.Room), meetings: make(map[string]int)}
	for i := range rooms {
		room := rooms[i]
		f.rooms[room.ID] = &room
	}
	return f
}

func (f *fakeRoomRepo) List(_ context.Context, _ models.RoomFilter) ([]models.Room, int, error) {
	out := make([]models.Room, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (f *fakeRoomRepo) GetByID(_ context.Context, id string) (*models.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *room
	return &clone, nil
}

func (f *fakeRoomRepo) Create(_ context.Context, room *models.Room) error {
	if f.createErr != nil {
		return f.createErr
	}
	room.ID = "room-new"
	f.created = append(f.created, room)
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeRoomRepo) Update(_ context.Context, room *models.Room) error {
	if _, ok := f.rooms[room.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *room
	f.rooms[room.ID] = &clone
	return nil
}

func (f *fakeRoomRepo) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.rooms[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.rooms, id)
	return nil
}

func (f *fakeRoomRepo) CountMeetings(_ context.Context, id string) (int, error) {
	return f.meetings[id], nil
}

func (f *fakeRoomRepo) ListAvailable(_ context.Context, filter models.RoomAvailabilityFilter) ([]models.Room, error) {
	f.lastFilter = filter
	return f.available, nil
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func asAppError(err error) *appErrors.Error {
	return appErrors.FromError(err)
}
