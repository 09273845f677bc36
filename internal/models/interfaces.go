package models

import (
	"context"
)

type Encryptor interface {
	Encrypt(value string) (encrypted string, err error)
	Decrypt(value string) (decrypted string, err error)
}

type IDGenerator interface {
	ID() (string, error)
}

type ValueGetter interface {
	// GetValue returns apierrors.ErrMissingDBResource when the key is not present
	GetValue(ctx context.Context, key string) (string, error)
}

type ValueSetter interface {
	SetValue(ctx context.Context, key string, value string) error
}

type ValueRemover interface {
	RemoveValue(ctx context.Context, keys ...string) error
}

// StateRepository persists the string valued client state (tokens, user info, flags)
type StateRepository interface {
	ValueGetter
	ValueSetter
	ValueRemover
}

// SessionTerminator ends the authenticated session after an unrecoverable authentication
// failure and sends the user to the given route
type SessionTerminator interface {
	TerminateSession(ctx context.Context, route string, cause error)
}
