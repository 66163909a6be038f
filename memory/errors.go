package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when restoring a session id that does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidPayload is returned when a tool-call or tool-result payload does not
	// match the {tool, arguments} / {tool, output} schema.
	ErrInvalidPayload = errors.New("invalid tool payload")
	// ErrInvalidRole is returned for a message role other than user, assistant or tool.
	ErrInvalidRole = errors.New("invalid message role")
)

// StorageError represents a failure reported by the database driver.
// The underlying driver error is preserved and reachable through Unwrap.
type StorageError struct {
	Op  string // "insert session", "query messages", ...
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err carries a StorageError anywhere in its chain.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
