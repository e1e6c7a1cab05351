package residency

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the failures of signup and login.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: bad input, caught before any side effect.
	KindValidation
	// KindCapacity: the apartment already holds Capacity residents.
	KindCapacity
	// KindIdentity: account creation or sign-in failed.
	KindIdentity
	// KindStore: a transaction or document write failed.
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCapacity:
		return "capacity"
	case KindIdentity:
		return "identity"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

var (
	// errors
	ErrInvalidApartment = errors.New("invalid apartment: use 201-204, 301-304, 401-404, 501-504 or 601-604")
	ErrApartmentFull    = errors.Errorf("apartment already has %d residents", Capacity)
	ErrProfileNotFound  = errors.New("resident profile not found")
	ErrInvalidRole      = errors.New("invalid role")
	ErrForbidden        = errors.New("moderator role required")
)

// Error is returned by the signup and login flows. Err keeps the triggering error so that
// errors.Is works through it.
type Error struct {
	Kind Kind
	Op   string
	Apt  int // 0 when unknown
	Err  error
}

func (e *Error) Error() string {
	if e.Apt != 0 {
		return fmt.Sprintf("%s: apartment %d: %v", e.Op, e.Apt, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
