package storage

import "errors"

var (
	// ErrNotFound means no snapshot is stored under the requested CID.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidCID means a CID could not be parsed or is not a raw sha2-256 CID.
	ErrInvalidCID = errors.New("storage: invalid cid")
	// ErrCIDMismatch means stored bytes no longer hash to the CID they are filed under.
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	// ErrImmutable means a different document already occupies the CID's slot.
	ErrImmutable = errors.New("storage: immutable object mismatch")
)

// IsNotFound reports whether err means a snapshot is absent.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
