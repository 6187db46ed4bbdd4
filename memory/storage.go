// Package memory models the physical memory of the simulated machine.
package memory

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when an access reaches beyond the storage.
var ErrOutOfRange = errors.New(
	"accessing physical address beyond the storage capacity")

// A Storage keeps the bytes of the physical memory.
//
// The storage is one contiguous, zero-filled buffer divided into frames of
// frameSize bytes. When the capacity is not a multiple of the frame size,
// the bytes after the last full frame belong to no frame. They can still be
// read and written by address, but never through a frame.
type Storage struct {
	frameSize uint64
	data      []byte
}

// NewStorage creates a zero-filled storage with the given capacity and frame
// size.
func NewStorage(capacity, frameSize uint64) *Storage {
	if frameSize == 0 {
		panic("frame size must be positive")
	}

	return &Storage{
		frameSize: frameSize,
		data:      make([]byte, capacity),
	}
}

// Capacity returns the number of bytes in the storage.
func (s *Storage) Capacity() uint64 {
	return uint64(len(s.data))
}

// FrameSize returns the number of bytes in each frame.
func (s *Storage) FrameSize() uint64 {
	return s.frameSize
}

// NumFrames returns the number of whole frames that fit in the storage.
func (s *Storage) NumFrames() int {
	return int(s.Capacity() / s.frameSize)
}

// WastedBytes returns the number of bytes that belong to no frame.
func (s *Storage) WastedBytes() uint64 {
	return s.Capacity() % s.frameSize
}

func (s *Storage) mustBeInRange(address, length uint64) error {
	if address > s.Capacity() || length > s.Capacity()-address {
		return fmt.Errorf("%w: [0x%x, 0x%x)", ErrOutOfRange,
			address, address+length)
	}

	return nil
}

// Read returns a copy of length bytes starting at address.
func (s *Storage) Read(address, length uint64) ([]byte, error) {
	if err := s.mustBeInRange(address, length); err != nil {
		return nil, err
	}

	res := make([]byte, length)
	copy(res, s.data[address:address+length])

	return res, nil
}

// Write copies data into the storage starting at address.
func (s *Storage) Write(address uint64, data []byte) error {
	if err := s.mustBeInRange(address, uint64(len(data))); err != nil {
		return err
	}

	copy(s.data[address:], data)

	return nil
}

func (s *Storage) frameBase(frame int) (uint64, error) {
	if frame < 0 || frame >= s.NumFrames() {
		return 0, fmt.Errorf("%w: frame %d", ErrOutOfRange, frame)
	}

	return uint64(frame) * s.frameSize, nil
}

// ReadFrame returns a copy of the whole frame.
func (s *Storage) ReadFrame(frame int) ([]byte, error) {
	base, err := s.frameBase(frame)
	if err != nil {
		return nil, err
	}

	return s.Read(base, s.frameSize)
}

// WriteFrame copies data to the beginning of a frame. Data longer than a
// frame is rejected. Bytes of the frame after len(data) are left as they
// are.
func (s *Storage) WriteFrame(frame int, data []byte) error {
	base, err := s.frameBase(frame)
	if err != nil {
		return err
	}

	if uint64(len(data)) > s.frameSize {
		return fmt.Errorf("%w: %d bytes do not fit in a frame of %d bytes",
			ErrOutOfRange, len(data), s.frameSize)
	}

	return s.Write(base, data)
}

// ClearFrame sets every byte of the frame to zero.
func (s *Storage) ClearFrame(frame int) error {
	base, err := s.frameBase(frame)
	if err != nil {
		return err
	}

	clear(s.data[base : base+s.frameSize])

	return nil
}
