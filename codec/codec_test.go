package codec

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJSON(t *testing.T) {
	c := JSON{}

	t.Run("round trip", func(t *testing.T) {
		envelope := map[string]any{
			"type": "publish",
			"data": map[string]any{
				"topic":       "chat",
				"messageType": "text-message",
				"compress":    false,
				"payload":     "hello",
				"id":          "m1",
			},
		}
		data, err := c.Encode(envelope)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		got, err := c.Decode(data)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if !cmp.Equal(got, envelope) {
			t.Errorf("diff: %v", cmp.Diff(got, envelope))
		}
	})

	t.Run("decode failure", func(t *testing.T) {
		if _, err := c.Decode([]byte("{not json")); !errors.Is(err, ErrDecodeFailure) {
			t.Errorf("expected ErrDecodeFailure, got %v", err)
		}
	})

	t.Run("encode failure", func(t *testing.T) {
		if _, err := c.Encode(map[string]any{"bad": func() {}}); !errors.Is(err, ErrEncodeFailure) {
			t.Errorf("expected ErrEncodeFailure, got %v", err)
		}
	})
}

func TestMsgPack(t *testing.T) {
	c := MsgPack{}

	t.Run("round trip", func(t *testing.T) {
		envelope := map[string]any{
			"type": "subscribe",
			"data": map[string]any{"topic": "chat"},
		}
		data, err := c.Encode(envelope)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		got, err := c.Decode(data)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if !cmp.Equal(got, envelope) {
			t.Errorf("diff: %v", cmp.Diff(got, envelope))
		}
	})

	t.Run("decode failure", func(t *testing.T) {
		if _, err := c.Decode([]byte{0xc1}); !errors.Is(err, ErrDecodeFailure) {
			t.Errorf("expected ErrDecodeFailure, got %v", err)
		}
	})
}

func TestDefault(t *testing.T) {
	if got := Default().Name(); got != "json" {
		t.Errorf("expected json, got %q", got)
	}
}
