package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"phrasedesk/internal/library"
	"phrasedesk/internal/model"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/repository"
	"phrasedesk/internal/session"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateMemberRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role" binding:"required"`
	Active      *bool  `json:"active"`
	FirstAccess *bool  `json:"first_access"`
}

// UpdateMemberRequest changes only the fields that are present. The username
// cannot be changed.
type UpdateMemberRequest struct {
	DisplayName *string `json:"display_name"`
	Password    string  `json:"password" binding:"omitempty,min=6"`
	Role        string  `json:"role"`
	Active      *bool   `json:"active"`
	FirstAccess *bool   `json:"first_access"`
}

// MemberResponse is a roster entry without the password hash
type MemberResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	FirstAccess bool       `json:"first_access"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

type RosterService interface {
	List(ctx context.Context, offset, limit int) ([]MemberResponse, int64, error)
	Search(ctx context.Context, term string) ([]MemberResponse, error)
	Get(ctx context.Context, id string) (*MemberResponse, error)
	Create(ctx context.Context, actor *session.Session, req CreateMemberRequest) (*MemberResponse, error)
	Update(ctx context.Context, actor *session.Session, id string, req UpdateMemberRequest) (*MemberResponse, error)
	Delete(ctx context.Context, actor *session.Session, id string) error
	// EnsureAdmin creates the bootstrap admin when the roster is empty
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
}

type rosterService struct {
	users   repository.UserRepository
	tx      repository.TransactionManager
	dir     *session.Directory
	journal journal
}

func NewRosterService(users repository.UserRepository, logs repository.ActivityRepository, tx repository.TransactionManager, dir *session.Directory, pub realtime.Publisher) RosterService {
	return &rosterService{users: users, tx: tx, dir: dir, journal: newJournal(logs, pub)}
}

func mapToMember(u *model.User) MemberResponse {
	return MemberResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.Name(),
		Role:        u.Role,
		Active:      u.Active,
		FirstAccess: u.FirstAccess,
		LastSeenAt:  u.LastSeenAt,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   u.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *rosterService) List(ctx context.Context, offset, limit int) ([]MemberResponse, int64, error) {
	users, total, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]MemberResponse, 0, len(users))
	for i := range users {
		out = append(out, mapToMember(&users[i]))
	}
	return out, total, nil
}

// Search matches the normalised term against display name, username and role
func (s *rosterService) Search(ctx context.Context, term string) ([]MemberResponse, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	needle := library.Normalize(strings.TrimSpace(term))
	out := make([]MemberResponse, 0)
	for i := range users {
		u := &users[i]
		hay := library.Normalize(u.Name() + " " + u.Username + " " + u.Role)
		if needle == "" || strings.Contains(hay, needle) {
			out = append(out, mapToMember(u))
		}
	}
	return out, nil
}

func (s *rosterService) load(ctx context.Context, id string) (*model.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	user, err := s.users.GetByID(ctx, uid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *rosterService) Get(ctx context.Context, id string) (*MemberResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	res := mapToMember(user)
	return &res, nil
}

func (s *rosterService) Create(ctx context.Context, actor *session.Session, req CreateMemberRequest) (*MemberResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, ErrInvalidPayload
	}
	if req.Password == "" {
		return nil, ErrPasswordRequired
	}
	if !model.ValidRole(req.Role) {
		return nil, ErrInvalidRole
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:    username,
		Password:    string(hashed),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        req.Role,
		Active:      boolOr(req.Active, true),
		FirstAccess: boolOr(req.FirstAccess, true),
	}

	b := s.journal.begin()
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, user); err != nil {
			return err
		}
		return b.log(txCtx, actorName(actor), model.ActionCreateUser, user.Username)
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	res := mapToMember(user)
	b.add(realtime.TableUsers, realtime.Insert, res)
	s.dir.Invalidate()
	b.publish()
	return &res, nil
}

func (s *rosterService) Update(ctx context.Context, actor *session.Session, id string, req UpdateMemberRequest) (*MemberResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Role != "" {
		if !model.ValidRole(req.Role) {
			return nil, ErrInvalidRole
		}
		user.Role = req.Role
	}
	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.FirstAccess != nil {
		user.FirstAccess = *req.FirstAccess
	}
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.Password = string(hashed)
	}

	b := s.journal.begin()
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return err
		}
		return b.log(txCtx, actorName(actor), model.ActionEditUser, user.Username)
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	res := mapToMember(user)
	b.add(realtime.TableUsers, realtime.Update, res)
	s.dir.Invalidate()
	b.publish()
	return &res, nil
}

func (s *rosterService) Delete(ctx context.Context, actor *session.Session, id string) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if actor != nil && actor.UserID == user.ID {
		return ErrCannotDeleteSelf
	}

	b := s.journal.begin()
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Delete(txCtx, user.ID); err != nil {
			return err
		}
		return b.log(txCtx, actorName(actor), model.ActionDeleteUser, user.Username)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	b.add(realtime.TableUsers, realtime.Delete, map[string]interface{}{"id": user.ID, "username": user.Username})
	s.dir.Invalidate()
	b.publish()
	return nil
}

func (s *rosterService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 || username == "" || password == "" {
		return false, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	admin := &model.User{
		Username: username,
		Password: string(hashed),
		Role:     model.RoleAdmin,
		Active:   true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	s.dir.Invalidate()
	return true, nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// actorName is the username recorded in activity rows
func actorName(actor *session.Session) string {
	if actor == nil {
		return "system"
	}
	return actor.Username
}
