package mmu

import "errors"

// Errors returned by the memory manager. They are wrapped with the details
// of the failing call; use errors.Is to match them.
var (
	ErrConfiguration     = errors.New("invalid memory configuration")
	ErrNotInitialized    = errors.New("memory is not initialized")
	ErrInvalidSize       = errors.New("process size must be positive")
	ErrSizeExceedsLimit  = errors.New("process size exceeds the maximum allowed")
	ErrRegistryFull      = errors.New("process table is full")
	ErrDuplicateID       = errors.New("process ID already in use")
	ErrNotFound          = errors.New("process not found")
	ErrAddressOutOfRange = errors.New("address outside the process")

	ErrInsufficientTotalMemory = errors.New(
		"not enough memory to hold the process")
	ErrInsufficientFramesDuringAllocation = errors.New(
		"not enough free frames during allocation")
)
