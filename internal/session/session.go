// Package session persists the logged-in user across runs. The presence
// of a stored user id is the only login predicate; nothing expires.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/example/ceremic-storefront/internal/backend"
	"github.com/example/ceremic-storefront/internal/infrastructure/store"
)

const (
	KeyUserID   = "ceremic_user_id"
	KeyUserData = "ceremic_user_data"

	// AnonymousUserID is reported in telemetry when nobody is logged in.
	AnonymousUserID int64 = -1
)

type Session struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Pincode     string `json:"pincode"`
}

func FromUser(u backend.User) Session {
	return Session(u)
}

func (s Session) User() backend.User {
	return backend.User(s)
}

// Provider is the session capability handed to the components that need
// identity. A nil session with a nil error means logged out.
type Provider interface {
	Get(ctx context.Context) (*Session, error)
	Set(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// StorageProvider keeps the session in a key/value Storage under two
// keys: the bare id and the full record.
type StorageProvider struct {
	storage store.Storage
}

func NewStorageProvider(storage store.Storage) *StorageProvider {
	return &StorageProvider{storage: storage}
}

// NewMemoryProvider returns a provider that forgets everything on exit.
func NewMemoryProvider() *StorageProvider {
	return NewStorageProvider(store.NewMemoryStorage())
}

func (p *StorageProvider) Get(ctx context.Context) (*Session, error) {
	rawID, ok, err := p.storage.Get(ctx, KeyUserID)
	if err != nil {
		return nil, fmt.Errorf("read session id: %w", err)
	}
	if !ok || len(rawID) == 0 {
		return nil, nil
	}
	id, err := strconv.ParseInt(string(rawID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse session id %q: %w", rawID, err)
	}

	s := &Session{ID: id}
	data, ok, err := p.storage.Get(ctx, KeyUserData)
	if err != nil {
		return nil, fmt.Errorf("read session data: %w", err)
	}
	if ok {
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("decode session data: %w", err)
		}
		// the id key is authoritative
		s.ID = id
	}
	return s, nil
}

func (p *StorageProvider) Set(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := p.storage.Set(ctx, KeyUserID, []byte(strconv.FormatInt(s.ID, 10))); err != nil {
		return fmt.Errorf("write session id: %w", err)
	}
	if err := p.storage.Set(ctx, KeyUserData, data); err != nil {
		return fmt.Errorf("write session data: %w", err)
	}
	return nil
}

func (p *StorageProvider) Clear(ctx context.Context) error {
	if err := p.storage.Delete(ctx, KeyUserID); err != nil {
		return fmt.Errorf("clear session id: %w", err)
	}
	if err := p.storage.Delete(ctx, KeyUserData); err != nil {
		return fmt.Errorf("clear session data: %w", err)
	}
	return nil
}

// Current returns the session, treating read failures as logged out.
func Current(ctx context.Context, p Provider) *Session {
	s, err := p.Get(ctx)
	if err != nil {
		return nil
	}
	return s
}

// UserID returns the logged-in user's id or AnonymousUserID.
func UserID(ctx context.Context, p Provider) int64 {
	if s := Current(ctx, p); s != nil {
		return s.ID
	}
	return AnonymousUserID
}

func LoggedIn(ctx context.Context, p Provider) bool {
	return Current(ctx, p) != nil
}
