package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"phrasedesk/internal/infra"
	"phrasedesk/internal/model"
	"phrasedesk/internal/repository"
	"phrasedesk/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dayMarker ignores expiry so tests can move the clock freely
type dayMarker map[string]bool

func (m dayMarker) MarkOnce(_ context.Context, key string, _ time.Time) (bool, error) {
	if m[key] {
		return false, nil
	}
	m[key] = true
	return true, nil
}

func (m dayMarker) Unmark(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

var _ infra.MarkerStore = dayMarker{}

// flakyLogs fails the next fails calls to Log
type flakyLogs struct {
	repository.ActivityRepository
	fails int
}

func (l *flakyLogs) Log(ctx context.Context, entry *model.LogEntry) error {
	if l.fails > 0 {
		l.fails--
		return errors.New("db down")
	}
	return l.ActivityRepository.Log(ctx, entry)
}

func newSessionService(f *fixture, now *time.Time) *sessionService {
	tokens := session.NewTokenIssuer([]byte("test-secret"), time.Hour)
	svc := NewSessionService(f.users, f.logs, f.tx, tokens, dayMarker{}, f.pub, time.UTC).(*sessionService)
	svc.journal.now = func() time.Time { return *now }
	return svc
}

func TestSessionService_LoginWritesOneLoginLogPerDay(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "ana", "secret1", model.RoleCollaborator, nil)
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	svc := newSessionService(f, &now)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginRequest{Username: "ana", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.False(t, res.RequiresPasswordSetup)
	require.NotNil(t, res.User)
	assert.Equal(t, "ana", res.User.Username)

	now = now.Add(3 * time.Hour)
	_, err = svc.Login(ctx, LoginRequest{Username: "ana", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.logCount(t, model.ActionLogin))

	now = now.Add(24 * time.Hour)
	_, err = svc.Login(ctx, LoginRequest{Username: "ana", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.logCount(t, model.ActionLogin))

	u, err := f.users.GetByUsername(ctx, "ana")
	require.NoError(t, err)
	require.NotNil(t, u.LastSeenAt)
	assert.True(t, u.LastSeenAt.Equal(now))
}

func TestSessionService_FailedLoginKeepsDailyLogPending(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "ana", "secret1", model.RoleCollaborator, nil)
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	logs := &flakyLogs{ActivityRepository: f.logs, fails: 1}
	markers := dayMarker{}
	svc := NewSessionService(f.users, logs, f.tx, session.NewTokenIssuer([]byte("test-secret"), time.Hour), markers, f.pub, time.UTC).(*sessionService)
	svc.journal.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{Username: "ana", Password: "secret1"})
	require.Error(t, err)
	assert.Zero(t, f.logCount(t, model.ActionLogin))
	assert.Empty(t, markers)

	now = now.Add(time.Hour)
	_, err = svc.Login(ctx, LoginRequest{Username: "ana", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.logCount(t, model.ActionLogin))

	_, err = svc.Login(ctx, LoginRequest{Username: "ana", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.logCount(t, model.ActionLogin))
}

func TestSessionService_LoginRejections(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "ana", "secret1", model.RoleCollaborator, nil)
	f.addUser(t, "old", "secret1", model.RoleCollaborator, func(u *model.User) { u.Active = false })
	now := time.Now()
	svc := newSessionService(f, &now)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{Username: "ana", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Username: "ghost", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Username: "old", Password: "secret1"})
	assert.ErrorIs(t, err, ErrAccountInactive)

	u, err := f.users.GetByUsername(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, u.LastSeenAt)
	assert.Equal(t, 0, f.logCount(t, model.ActionLogin))
}

func TestSessionService_FirstAccessRequiresPasswordSetup(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "bia", "temp123", model.RoleCollaborator, func(u *model.User) { u.FirstAccess = true })
	now := time.Now()
	svc := newSessionService(f, &now)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginRequest{Username: "bia", Password: "temp123"})
	require.NoError(t, err)
	assert.True(t, res.RequiresPasswordSetup)
	assert.NotEmpty(t, res.SetupToken)
	assert.Empty(t, res.Token)
	assert.Equal(t, 0, f.logCount(t, model.ActionLogin))

	// a setup token is not an access token
	_, err = svc.tokens.Verify(res.SetupToken)
	assert.Error(t, err)

	require.NoError(t, svc.SetupPassword(ctx, SetupPasswordRequest{SetupToken: res.SetupToken, NewPassword: "brandnew"}))
	assert.ErrorIs(t, svc.SetupPassword(ctx, SetupPasswordRequest{SetupToken: "garbage", NewPassword: "brandnew"}), ErrInvalidSetupToken)

	_, err = svc.Login(ctx, LoginRequest{Username: "bia", Password: "temp123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err = svc.Login(ctx, LoginRequest{Username: "bia", Password: "brandnew"})
	require.NoError(t, err)
	assert.False(t, res.RequiresPasswordSetup)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, 1, f.logCount(t, model.ActionLogin))
}

func TestSessionService_RefreshPicksUpChanges(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "caio", "secret1", model.RoleCollaborator, nil)
	now := time.Now()
	svc := newSessionService(f, &now)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginRequest{Username: "caio", Password: "secret1"})
	require.NoError(t, err)

	u.Role = model.RoleAdmin
	u.DisplayName = "Caio Lima"
	require.NoError(t, f.users.Update(ctx, u))

	again, err := svc.Refresh(ctx, res.User)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, again.User.Role)
	assert.Equal(t, "Caio Lima", again.User.DisplayName)

	u.Active = false
	require.NoError(t, f.users.Update(ctx, u))
	_, err = svc.Refresh(ctx, res.User)
	assert.ErrorIs(t, err, ErrAccountInactive)
}
