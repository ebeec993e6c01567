package gpu

import "github.com/cockroachdb/errors"

var (
	// ErrNoDriver means no registered driver supports the requested shader
	// formats, or the named driver does not exist.
	ErrNoDriver = errors.New("gpu: no suitable driver")

	ErrUnsupportedFormat = errors.New("gpu: unsupported format")

	ErrWindowNotClaimed = errors.New("gpu: window not claimed by device")

	// ErrInvalidCommandOrder is reported by Submit when commands were
	// recorded outside the pass they belong to or after the command buffer
	// was finished.
	ErrInvalidCommandOrder = errors.New("gpu: invalid command order")

	ErrReleased = errors.New("gpu: resource already released")

	ErrDeviceLost = errors.New("gpu: device lost")
)
