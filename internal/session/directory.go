package session

import (
	"context"
	"sync"
	"time"

	"phrasedesk/internal/model"

	"github.com/rs/zerolog/log"
)

const DefaultDirectoryTTL = 5 * time.Minute

// UserLister is the slice of the user repository the directory reads
type UserLister interface {
	ListAll(ctx context.Context) ([]model.User, error)
}

// Entry is what the directory knows about a username
type Entry struct {
	DisplayName string
	Role        string
	Active      bool
}

// Directory caches username lookups for the whole roster. It reloads after the
// TTL or an explicit Invalidate.
type Directory struct {
	users   UserLister
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]Entry
	expires time.Time
}

func NewDirectory(users UserLister, ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = DefaultDirectoryTTL
	}
	return &Directory{users: users, ttl: ttl}
}

// Lookup returns the entry for username, loading the roster when stale.
func (d *Directory) Lookup(ctx context.Context, username string) (Entry, bool) {
	d.mu.RLock()
	fresh := d.entries != nil && time.Now().Before(d.expires)
	if fresh {
		e, ok := d.entries[username]
		d.mu.RUnlock()
		return e, ok
	}
	d.mu.RUnlock()

	if err := d.reload(ctx); err != nil {
		log.Warn().Err(err).Msg("directory reload failed")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[username]
	return e, ok
}

// Name returns the display name or the username itself when unknown
func (d *Directory) Name(ctx context.Context, username string) string {
	if e, ok := d.Lookup(ctx, username); ok && e.DisplayName != "" {
		return e.DisplayName
	}
	return username
}

func (d *Directory) Invalidate() {
	d.mu.Lock()
	d.expires = time.Time{}
	d.mu.Unlock()
}

func (d *Directory) reload(ctx context.Context) error {
	users, err := d.users.ListAll(ctx)
	if err != nil {
		return err
	}
	entries := make(map[string]Entry, len(users))
	for i := range users {
		u := &users[i]
		entries[u.Username] = Entry{DisplayName: u.Name(), Role: u.Role, Active: u.Active}
	}
	d.mu.Lock()
	d.entries = entries
	d.expires = time.Now().Add(d.ttl)
	d.mu.Unlock()
	return nil
}
