package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (wrapped with
// context) so services can decide what the fact means for the caller:
//   - ErrNotFound: the row does not exist; services usually turn this into an absent result
//   - ErrUnavailable: the backing medium is inaccessible, corrupted, or the call was cut short
//   - ErrInvalidState: the stored data cannot be decoded into a valid entity
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("storage unavailable")
	ErrInvalidState = errors.New("invalid state")
)

// Unavailable marks err as a storage availability failure while keeping the
// original cause reachable through errors.Is / errors.As.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return errors.Join(ErrUnavailable, err)
}
