package codec

import (
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgPack implements Codec using MessagePack serialization.
// MessagePack is a binary format that's more compact than JSON while
// keeping the envelope schema-less. Use it only against gateways that
// speak a binary framing; the public service uses JSON text frames.
type MsgPack struct{}

// Encode serializes an envelope to MessagePack bytes
func (c MsgPack) Encode(v map[string]any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}
	return data, nil
}

// Decode deserializes MessagePack bytes to an envelope
func (c MsgPack) Decode(data []byte) (map[string]any, error) {
	var v map[string]any
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}
	return v, nil
}

// ContentType returns the MIME type for MessagePack
func (c MsgPack) ContentType() string {
	return "application/msgpack"
}

// Name returns the codec identifier
func (c MsgPack) Name() string {
	return "msgpack"
}

// Compile-time check
var _ Codec = MsgPack{}
