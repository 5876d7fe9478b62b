package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKey is returned when the active key ID is not in the key set
	ErrUnknownKey = errors.New("unknown_signing_key")
	// ErrNoKeys is returned when the keys directory holds no usable key pair
	ErrNoKeys = errors.New("no_signing_keys")
	// ErrAdminRegistration is returned when self-registration asks for the admin role
	ErrAdminRegistration = errors.New("admin_registration_disabled")
	// ErrMissingIdentity is returned when a handler runs without the auth middleware
	ErrMissingIdentity = errors.New("missing_identity")
)

// ErrKeysDirectoryNotAccessible is returned when the keys path cannot be stat'ed
type ErrKeysDirectoryNotAccessible struct {
	Path string
	Err  error
}

func (e *ErrKeysDirectoryNotAccessible) Error() string {
	return fmt.Sprintf("keys directory %s is not accessible: %v", e.Path, e.Err)
}

func (e *ErrKeysDirectoryNotAccessible) Unwrap() error { return e.Err }

// ErrKeysPathNotDirectory is returned when the keys path is a file
type ErrKeysPathNotDirectory struct {
	Path string
}

func (e *ErrKeysPathNotDirectory) Error() string {
	return fmt.Sprintf("keys path %s is not a directory", e.Path)
}

// ErrInvalidKeyFile is returned when a PEM file cannot be read or parsed
type ErrInvalidKeyFile struct {
	FileName string
	Reason   string
	Err      error
}

func (e *ErrInvalidKeyFile) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("key file %s: %s: %v", e.FileName, e.Reason, e.Err)
	}
	return fmt.Sprintf("key file %s: %s", e.FileName, e.Reason)
}

func (e *ErrInvalidKeyFile) Unwrap() error { return e.Err }
