package ledger

import "errors"

// Every rejection is one of these sentinel errors; callers branch with
// errors.Is. A rejected call never leaves partial state behind.
var (
	ErrAlreadyRegistered = errors.New("account already owns a profile")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrInvalidUsername   = errors.New("username must not be empty")
	ErrUnregistered      = errors.New("account has no profile")
	ErrInvalidPost       = errors.New("post needs content or a media reference")
	ErrPostNotFound      = errors.New("post not found")
	ErrAlreadyLiked      = errors.New("post already liked by this account")
	ErrProfileNotFound   = errors.New("profile not found")
)
