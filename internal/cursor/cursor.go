package cursor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"docmanager/internal/model"
	"docmanager/internal/store"
)

// Package cursor encodes and decodes the opaque pagination tokens handed to
// clients. A cursor is mode-tagged: a single-partition cursor wraps one store
// continuation key, an all-partition cursor carries the watermark of the last
// emitted item plus one continuation key per partition that still had pages.
// Decoding a cursor under the wrong mode is a format error, so a token issued
// for one filter mode can never be replayed under the other.

// ErrInvalidCursor is returned when a cursor is malformed, tampered with, or
// was issued under a different filter mode.
var ErrInvalidCursor = errors.New("invalid cursor")

const (
	modeSingle = "single"
	modeAll    = "all"
)

// Single is the cursor for a specific-status listing.
type Single struct {
	Key store.ContinuationKey `json:"key"`
}

// All is the cursor for an all-status listing. Keys holds the resume position
// for each partition that reported more data; partitions absent from the map
// were exhausted.
type All struct {
	Watermark   time.Time                              `json:"watermark"`
	WatermarkID string                                 `json:"watermark_id"`
	Keys        map[model.Status]store.ContinuationKey `json:"keys"`
}

// envelope is the wire form. Exactly one of the payload fields is set,
// according to Mode.
type envelope struct {
	Mode   string  `json:"mode"`
	Single *Single `json:"single,omitempty"`
	All    *All    `json:"all,omitempty"`
}

// EncodeSingle serializes a single-partition cursor to a transport-safe string.
func EncodeSingle(c Single) string {
	return encode(envelope{Mode: modeSingle, Single: &c})
}

// EncodeAll serializes an all-partition cursor to a transport-safe string.
func EncodeAll(c All) string {
	return encode(envelope{Mode: modeAll, All: &c})
}

func encode(env envelope) string {
	b, err := json.Marshal(env)
	if err != nil {
		// Both cursor variants are plain data; marshaling cannot fail.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeSingle parses a single-partition cursor. It fails with
// ErrInvalidCursor for malformed input or an all-mode token.
func DecodeSingle(raw string) (Single, error) {
	env, err := decode(raw)
	if err != nil {
		return Single{}, err
	}
	if env.Mode != modeSingle || env.Single == nil {
		return Single{}, ErrInvalidCursor
	}
	return *env.Single, nil
}

// DecodeAll parses an all-partition cursor. It fails with ErrInvalidCursor for
// malformed input or a single-mode token.
func DecodeAll(raw string) (All, error) {
	env, err := decode(raw)
	if err != nil {
		return All{}, err
	}
	if env.Mode != modeAll || env.All == nil {
		return All{}, ErrInvalidCursor
	}
	return *env.All, nil
}

func decode(raw string) (envelope, error) {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return envelope{}, ErrInvalidCursor
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return envelope{}, ErrInvalidCursor
	}
	return env, nil
}
