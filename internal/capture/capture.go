package capture

import (
	"context"
	"errors"
	"time"
)

// ErrCaptureUnavailable is returned when the capture resource cannot be
// acquired. A session that sees this error never enters its running state.
var ErrCaptureUnavailable = errors.New("capture resource unavailable")

// Frame is one captured still image.
type Frame struct {
	// Seq is a monotonic sequence number assigned by the source.
	Seq uint64
	// Timestamp is when the frame was captured.
	Timestamp time.Time
	// Data contains the encoded image bytes (JPEG or PNG).
	Data []byte
}

// FrameSource is the contract for frame acquisition.
//
// Implementations must guarantee:
//   - Acquire() is called once before the first Frame() call
//   - Frame() blocks until a frame is available or the context is done
//   - Release() is idempotent (safe to call multiple times)
type FrameSource interface {
	// Acquire opens the underlying capture resource. Returns
	// ErrCaptureUnavailable (possibly wrapped) if the resource cannot be
	// opened; no frames may be requested after a failed Acquire.
	Acquire(ctx context.Context) error

	// Frame reads one frame. Per-frame failures are transient: the caller
	// may keep calling Frame after an error.
	Frame(ctx context.Context) (Frame, error)

	// Release closes the capture resource.
	Release() error
}
