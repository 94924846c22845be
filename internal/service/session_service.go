package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"phrasedesk/internal/infra"
	"phrasedesk/internal/model"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/repository"
	"phrasedesk/internal/session"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SetupPasswordRequest struct {
	SetupToken  string `json:"setup_token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// LoginResult is either a full session or a pending password setup
type LoginResult struct {
	Token                 string           `json:"token,omitempty"`
	ExpiresAt             *time.Time       `json:"expires_at,omitempty"`
	User                  *session.Session `json:"user,omitempty"`
	RequiresPasswordSetup bool             `json:"requires_password_setup"`
	SetupToken            string           `json:"setup_token,omitempty"`
}

type SessionService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	SetupPassword(ctx context.Context, req SetupPasswordRequest) error
	Refresh(ctx context.Context, sess *session.Session) (*LoginResult, error)
}

type sessionService struct {
	users   repository.UserRepository
	tx      repository.TransactionManager
	tokens  *session.TokenIssuer
	markers infra.MarkerStore
	journal journal
	loc     *time.Location
}

func NewSessionService(
	users repository.UserRepository,
	logs repository.ActivityRepository,
	tx repository.TransactionManager,
	tokens *session.TokenIssuer,
	markers infra.MarkerStore,
	pub realtime.Publisher,
	loc *time.Location,
) SessionService {
	if loc == nil {
		loc = time.UTC
	}
	return &sessionService{
		users:   users,
		tx:      tx,
		tokens:  tokens,
		markers: markers,
		journal: newJournal(logs, pub),
		loc:     loc,
	}
}

func (s *sessionService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountInactive
	}

	if user.FirstAccess {
		setup, err := s.tokens.IssueSetup(user)
		if err != nil {
			return nil, fmt.Errorf("issue setup token: %w", err)
		}
		return &LoginResult{RequiresPasswordSetup: true, SetupToken: setup}, nil
	}

	now := s.journal.now()
	key, endOfDay := loginMarker(user.Username, now.In(s.loc))
	b := s.journal.begin()
	marked := false
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.TouchLastSeen(txCtx, user.ID, now); err != nil {
			return err
		}
		if !s.firstLoginToday(ctx, key, endOfDay, user.Username) {
			return nil
		}
		marked = true
		return b.log(txCtx, user.Username, model.ActionLogin, "")
	})
	if err != nil {
		// the LOGIN row rolled back with the transaction, so the next login
		// of the day must still write it
		if marked {
			if uerr := s.markers.Unmark(context.WithoutCancel(ctx), key); uerr != nil {
				log.Warn().Err(uerr).Str("username", user.Username).Msg("failed to release daily login marker")
			}
		}
		return nil, fmt.Errorf("record login: %w", err)
	}
	b.publish()

	return s.issue(user)
}

// loginMarker is the daily marker key for username and the local midnight it expires at
func loginMarker(username string, local time.Time) (string, time.Time) {
	y, m, d := local.Date()
	return "login:" + username + ":" + local.Format("2006-01-02"), time.Date(y, m, d+1, 0, 0, 0, 0, local.Location())
}

// firstLoginToday sets the daily marker. A marker store failure counts as a
// first login so the audit row is not lost.
func (s *sessionService) firstLoginToday(ctx context.Context, key string, endOfDay time.Time, username string) bool {
	first, err := s.markers.MarkOnce(ctx, key, endOfDay)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("daily login marker unavailable")
		return true
	}
	return first
}

func (s *sessionService) issue(user *model.User) (*LoginResult, error) {
	token, sess, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	expires := sess.IssuedAt.Add(s.tokens.AccessTTL())
	return &LoginResult{Token: token, ExpiresAt: &expires, User: sess}, nil
}

func (s *sessionService) SetupPassword(ctx context.Context, req SetupPasswordRequest) error {
	claims, err := s.tokens.Parse(req.SetupToken, session.PurposeSetup)
	if err != nil {
		return ErrInvalidSetupToken
	}
	user, err := s.users.GetByUsername(ctx, claims.Username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidSetupToken
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		return ErrAccountInactive
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hashed)
	user.FirstAccess = false
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("save password: %w", err)
	}
	return nil
}

// Refresh reloads the user row so role or name changes reach the session
func (s *sessionService) Refresh(ctx context.Context, sess *session.Session) (*LoginResult, error) {
	if sess == nil {
		return nil, ErrUserNotFound
	}
	user, err := s.users.GetByID(ctx, sess.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		return nil, ErrAccountInactive
	}
	return s.issue(user)
}
