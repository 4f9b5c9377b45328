// Package codec provides wire envelope serialization for the messaging
// gateway protocol.
//
// Supported formats:
//   - JSON (default, the gateway's native text format)
//   - MessagePack (binary, for gateways configured with a binary framing)
package codec

import "errors"

// Codec errors
var (
	ErrEncodeFailure = errors.New("failed to encode envelope")
	ErrDecodeFailure = errors.New("failed to decode envelope")
)

// Codec handles envelope serialization/deserialization.
// Implementations must be safe for concurrent use and must round-trip
// object keys losslessly for the envelope shapes used by the gateway.
type Codec interface {
	// Encode serializes an envelope to bytes.
	// Returns ErrEncodeFailure if serialization fails.
	Encode(v map[string]any) ([]byte, error)

	// Decode deserializes bytes to an envelope.
	// Returns ErrDecodeFailure if deserialization fails.
	Decode(data []byte) (map[string]any, error)

	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Name returns a short identifier for this codec (e.g., "json", "msgpack").
	Name() string
}

// Default returns the default codec (JSON)
func Default() Codec {
	return JSON{}
}
