package service

import "errors"

var (
	// ErrInvalidArgument is returned for calls that can never succeed, such as a nil mutator.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMutatorFailed wraps an error (or recovered panic) raised by a CreateOrMutateByID mutator.
	ErrMutatorFailed = errors.New("diagnosis mutator failed")
)
