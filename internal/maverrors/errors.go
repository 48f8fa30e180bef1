// Package maverrors collects the sentinel errors every other package wraps
// with fmt.Errorf("%w: ...") so callers can classify failures with
// errors.Is, in the same style as the teacher's server/errors.go.
package maverrors

import "errors"

var (
	// ErrIO wraps an underlying transport read/write failure.
	ErrIO = errors.New("io")

	// ErrInvalidCRC means a frame's trailing checksum did not match the
	// computed CRC-16/MCRF4XX over its header, payload, and CRC-extra byte.
	// The decoder discards the offending frame and resynchronizes; this
	// error is informational, not fatal to the stream.
	ErrInvalidCRC = errors.New("invalid crc")

	// ErrInvalidPayload means a frame names a message id outside the
	// dialect or its payload could not be parsed into a known message, or
	// that a payload to encode is longer than 255 bytes.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrLinkClosed means an operation was attempted on a Link or
	// Component whose underlying transport has shut down.
	ErrLinkClosed = errors.New("link closed")

	// ErrTimeout means a probe exhausted its retries without a matching
	// reply.
	ErrTimeout = errors.New("timeout")

	// ErrProtocol means a peer violated the expected protocol sequence —
	// e.g. a mission upload seq outside the announced item count.
	ErrProtocol = errors.New("protocol error")
)
