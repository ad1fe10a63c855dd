package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed matches every *ParseError.
	ErrMalformed = errors.New("malformed document")

	// ErrUnsupportedVersion matches every *VersionError.
	ErrUnsupportedVersion = errors.New("unsupported document version")

	// ErrInvalidPassword matches every *DecryptError.
	ErrInvalidPassword = errors.New("invalid password")

	errMissing = errors.New("missing")
)

// ParseError reports a malformed or incomplete document.
type ParseError struct {
	// Field is the document field at fault, empty for whole-document errors.
	Field string

	Err error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed document: field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("malformed document: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrMalformed
}

// VersionError reports a document written by a newer format version.
// Nothing is decrypted when it is returned.
type VersionError struct {
	Version   int
	Supported int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("document version %d is not supported (supported up to %d)", e.Version, e.Supported)
}

func (e *VersionError) Is(target error) bool {
	return target == ErrUnsupportedVersion
}

// DecryptError reports a field that failed to decrypt. It deliberately
// carries no field name: callers report it as a wrong master password.
type DecryptError struct {
	Err error
}

func (e *DecryptError) Error() string {
	return ErrInvalidPassword.Error()
}

func (e *DecryptError) Unwrap() error {
	return e.Err
}

func (e *DecryptError) Is(target error) bool {
	return target == ErrInvalidPassword
}

// Warning is returned alongside a vault decoded from an older format.
type Warning struct {
	DocumentVersion int
	CurrentVersion  int
}

func (w *Warning) String() string {
	return fmt.Sprintf("vault uses format version %d (current is %d); it will be rewritten in the current format when saved",
		w.DocumentVersion, w.CurrentVersion)
}
