package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"phrasedesk/internal/model"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/repository"
	"phrasedesk/internal/session"
	"phrasedesk/internal/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type recordingPub struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPub) Publish(ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPub) tables() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Table+":"+string(ev.Type))
	}
	return out
}

func (p *recordingPub) count(table string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Table == table {
			n++
		}
	}
	return n
}

type fixture struct {
	db      *gorm.DB
	users   repository.UserRepository
	phrases repository.PhraseRepository
	logs    repository.ActivityRepository
	chat    repository.ChatRepository
	tx      repository.TransactionManager
	dir     *session.Directory
	pub     *recordingPub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)
	users := repository.NewUserRepository(db)
	return &fixture{
		db:      db,
		users:   users,
		phrases: repository.NewPhraseRepository(db),
		logs:    repository.NewActivityRepository(db),
		chat:    repository.NewChatRepository(db),
		tx:      repository.NewTransactionManager(db),
		dir:     session.NewDirectory(users, time.Minute),
		pub:     &recordingPub{},
	}
}

func (f *fixture) addUser(t *testing.T, username, password, role string, mutate func(*model.User)) *model.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Username: username, Password: string(hashed), Role: role, Active: true}
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) logCount(t *testing.T, action model.Action) int {
	t.Helper()
	entries, err := f.logs.ListSince(context.Background(), time.Time{}, action)
	require.NoError(t, err)
	return len(entries)
}

func actor(username, role string) *session.Session {
	return &session.Session{UserID: uuid.New(), Username: username, DisplayName: username, Role: role}
}
