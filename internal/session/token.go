package session

import (
	"errors"
	"fmt"
	"time"

	"phrasedesk/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose separates full access tokens from password-setup tokens
type Purpose string

const (
	PurposeAccess Purpose = "access"
	PurposeSetup  Purpose = "setup"
)

const setupTTL = 15 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongPurpose = errors.New("token not valid for this operation")
)

// Claims are the custom claims embedded in every token. Subject is the user id.
type Claims struct {
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Role        string  `json:"role"`
	Purpose     Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewTokenIssuer(secret []byte, accessTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = 12 * time.Hour
	}
	return &TokenIssuer{secret: secret, accessTTL: accessTTL, now: time.Now}
}

// AccessTTL is the lifetime of access tokens, used for the cookie max-age
func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.accessTTL
}

// Issue signs an access token for u
func (t *TokenIssuer) Issue(u *model.User) (string, *Session, error) {
	now := t.now()
	token, err := t.sign(u, PurposeAccess, now, t.accessTTL)
	if err != nil {
		return "", nil, err
	}
	return token, FromUser(u, now), nil
}

// IssueSetup signs a short-lived token that only allows setting a password
func (t *TokenIssuer) IssueSetup(u *model.User) (string, error) {
	return t.sign(u, PurposeSetup, t.now(), setupTTL)
}

func (t *TokenIssuer) sign(u *model.User, purpose Purpose, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Username:    u.Username,
		DisplayName: u.Name(),
		Role:        u.Role,
		Purpose:     purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates the signature, expiry and purpose of a token
func (t *TokenIssuer) Parse(tokenString string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

// Verify turns an access token back into the session it was issued for
func (t *TokenIssuer) Verify(tokenString string) (*Session, error) {
	claims, err := t.Parse(tokenString, PurposeAccess)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	s := &Session{
		UserID:      id,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	return s, nil
}
