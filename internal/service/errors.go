package service

import "errors"

// Sentinel errors returned by services. Handlers map them to status codes
// with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidSetupToken  = errors.New("invalid or expired setup token")
	ErrPasswordRequired   = errors.New("password is required")

	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username already exists")
	ErrInvalidRole      = errors.New("invalid role: must be admin or collaborator")
	ErrCannotDeleteSelf = errors.New("you cannot remove your own account")

	ErrPhraseNotFound  = errors.New("phrase not found")
	ErrDuplicatePhrase = errors.New("a phrase with the same content already exists")
	ErrContentRequired = errors.New("phrase content is required")
	ErrPhraseNotStale  = errors.New("phrase has been used recently")

	ErrMessageEmpty       = errors.New("message body is required")
	ErrAttachmentTooLarge = errors.New("attachment exceeds the upload limit")
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrUnknownTab         = errors.New("unknown search tab")
)
