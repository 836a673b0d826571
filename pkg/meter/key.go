package meter

import (
	"fmt"
	"strings"
)

// OwnerClass is the kind of metered subject.
type OwnerClass string

const (
	ClassUser  OwnerClass = "user"
	ClassGuest OwnerClass = "guest"
)

// Valid reports whether c is a meterable owner class.
func (c OwnerClass) Valid() bool {
	return c == ClassUser || c == ClassGuest
}

// Key identifies the account all ledgers and windows are namespaced by.
type Key struct {
	Class OwnerClass `json:"owner_class"`
	ID    string     `json:"owner_id"`
}

// maxIDLength bounds owner ids so they stay usable inside storage keys.
const maxIDLength = 128

// Validate rejects unknown classes and ids that are empty, too long or
// contain the key separator.
func (k Key) Validate() error {
	if !k.Class.Valid() {
		return fmt.Errorf("%w: unknown owner class %q", ErrValidation, k.Class)
	}
	if k.ID == "" {
		return fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if len(k.ID) > maxIDLength {
		return fmt.Errorf("%w: owner id longer than %d bytes", ErrValidation, maxIDLength)
	}
	if strings.ContainsAny(k.ID, ": \t\n") {
		return fmt.Errorf("%w: owner id contains reserved characters", ErrValidation)
	}
	return nil
}

// String renders the key as "class:id", the form used in storage keys.
func (k Key) String() string {
	return string(k.Class) + ":" + k.ID
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	class, id, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, fmt.Errorf("%w: malformed account key %q", ErrValidation, s)
	}
	k := Key{Class: OwnerClass(class), ID: id}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}
