package handler_test

// In-memory fakes for the store interfaces. They mirror the semantics
// of the SQL repositories, including sentinel errors, merge-patch
// updates and the transactional cascade on box delete, so handler tests
// exercise the same contracts the real stores provide.

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/romastokriceri/mystorage/internal/model"
	"github.com/romastokriceri/mystorage/internal/repository"
	"github.com/romastokriceri/mystorage/internal/utils"
)

type memStores struct {
	mu     sync.Mutex
	nextID uint64

	users  map[uint64]*model.User
	boxes  map[uint64]*model.Box
	items  map[uint64]*model.Item
	grants map[[2]uint64]time.Time
	tokens map[string]memToken
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

func newMemStores() *memStores {
	return &memStores{
		users:  map[uint64]*model.User{},
		boxes:  map[uint64]*model.Box{},
		items:  map[uint64]*model.Item{},
		grants: map[[2]uint64]time.Time{},
		tokens: map[string]memToken{},
	}
}

func (m *memStores) id() uint64 {
	m.nextID++
	return m.nextID
}

// ----- UserStore -----

type memUsers struct{ s *memStores }

func (f *memUsers) Create(_ context.Context, username, email, password string, cost int) (*model.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.s.users {
		if u.Username == username || u.Email == email {
			return nil, repository.ErrUserExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID: f.s.id(), Username: username, Email: email, PasswordHash: hash,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	f.s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if u, ok := f.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrUserNotFound
}

func (f *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// ----- BoxStore -----

type memBoxes struct{ s *memStores }

func (f *memBoxes) Create(_ context.Context, ownerID uint64, name, description, location, photoURL string) (*model.Box, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b := &model.Box{
		ID: f.s.id(), Name: name, Description: description, Location: location,
		PhotoURL: photoURL, QRCode: uuid.NewString()[:8], OwnerID: ownerID,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	f.s.boxes[b.ID] = b
	cp := *b
	return &cp, nil
}

func (f *memBoxes) GetByID(_ context.Context, id uint64) (*model.Box, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if b, ok := f.s.boxes[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, repository.ErrBoxNotFound
}

func (f *memBoxes) ListByOwner(_ context.Context, ownerID uint64) ([]*model.Box, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*model.Box
	for _, b := range f.s.boxes {
		if b.OwnerID == ownerID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *memBoxes) ListSharedWith(_ context.Context, userID uint64) ([]*model.Box, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*model.Box
	for key := range f.s.grants {
		if key[1] != userID {
			continue
		}
		if b, ok := f.s.boxes[key[0]]; ok {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *memBoxes) Update(_ context.Context, id uint64, p model.BoxPatch) (*model.Box, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b, ok := f.s.boxes[id]
	if !ok {
		return nil, repository.ErrBoxNotFound
	}
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Location != nil {
		b.Location = *p.Location
	}
	if p.PhotoURL != nil {
		b.PhotoURL = *p.PhotoURL
	}
	b.UpdatedAt = time.Now().UTC()
	cp := *b
	return &cp, nil
}

func (f *memBoxes) DeleteCascade(_ context.Context, id uint64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.boxes[id]; !ok {
		return repository.ErrBoxNotFound
	}
	for itemID, it := range f.s.items {
		if it.BoxID == id {
			delete(f.s.items, itemID)
		}
	}
	for key := range f.s.grants {
		if key[0] == id {
			delete(f.s.grants, key)
		}
	}
	delete(f.s.boxes, id)
	return nil
}

// ----- ItemStore -----

type memItems struct{ s *memStores }

func (f *memItems) Create(_ context.Context, boxID uint64, name, description, category, photoURL string) (*model.Item, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	it := &model.Item{
		ID: f.s.id(), Name: name, Description: description, Category: category,
		PhotoURL: photoURL, BoxID: boxID,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	f.s.items[it.ID] = it
	cp := *it
	return &cp, nil
}

func (f *memItems) GetByID(_ context.Context, id uint64) (*model.Item, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if it, ok := f.s.items[id]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, repository.ErrItemNotFound
}

func (f *memItems) ListByBox(_ context.Context, boxID uint64) ([]*model.Item, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*model.Item
	for _, it := range f.s.items {
		if it.BoxID == boxID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *memItems) ListByBoxes(_ context.Context, boxIDs []uint64) ([]*model.Item, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	want := map[uint64]bool{}
	for _, id := range boxIDs {
		want[id] = true
	}
	var out []*model.Item
	for _, it := range f.s.items {
		if want[it.BoxID] {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *memItems) Update(_ context.Context, id uint64, p model.ItemPatch) (*model.Item, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	it, ok := f.s.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.PhotoURL != nil {
		it.PhotoURL = *p.PhotoURL
	}
	it.UpdatedAt = time.Now().UTC()
	cp := *it
	return &cp, nil
}

func (f *memItems) Delete(_ context.Context, id uint64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.items[id]; !ok {
		return repository.ErrItemNotFound
	}
	delete(f.s.items, id)
	return nil
}

// ----- ShareStore + policy.GrantChecker -----

type memShares struct{ s *memStores }

func (f *memShares) Grant(_ context.Context, boxID, userID uint64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	key := [2]uint64{boxID, userID}
	if _, ok := f.s.grants[key]; ok {
		return repository.ErrAlreadyShared
	}
	f.s.grants[key] = time.Now().UTC()
	return nil
}

func (f *memShares) Revoke(_ context.Context, boxID, userID uint64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.grants, [2]uint64{boxID, userID})
	return nil
}

func (f *memShares) HasGrant(_ context.Context, boxID, userID uint64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	_, ok := f.s.grants[[2]uint64{boxID, userID}]
	return ok, nil
}

func (f *memShares) ListUsersForBox(_ context.Context, boxID uint64) ([]*model.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*model.User
	for key := range f.s.grants {
		if key[0] != boxID {
			continue
		}
		if u, ok := f.s.users[key[1]]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ----- TokenStore -----

type memTokens struct{ s *memStores }

func (f *memTokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.tokens[tokenHash] = memToken{userID: userID, exp: exp}
	return nil
}

func (f *memTokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	tk, ok := f.s.tokens[tokenHash]
	if !ok || tk.revoked || time.Now().UTC().After(tk.exp) {
		return 0, sql.ErrNoRows
	}
	return tk.userID, nil
}

func (f *memTokens) RevokeByHash(_ context.Context, tokenHash string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if tk, ok := f.s.tokens[tokenHash]; ok {
		tk.revoked = true
		f.s.tokens[tokenHash] = tk
	}
	return nil
}

func (f *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for hash, tk := range f.s.tokens {
		if tk.userID == userID {
			tk.revoked = true
			f.s.tokens[hash] = tk
		}
	}
	return nil
}
