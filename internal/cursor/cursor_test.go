package cursor

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmanager/internal/model"
	"docmanager/internal/store"
)

func TestSingleRoundTrip(t *testing.T) {
	in := Single{
		Key: store.ContinuationKey{
			CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			ID:        "doc-42",
		},
	}

	raw := EncodeSingle(in)
	require.NotEmpty(t, raw)

	out, err := DecodeSingle(raw)
	require.NoError(t, err)
	assert.True(t, in.Key.CreatedAt.Equal(out.Key.CreatedAt))
	assert.Equal(t, in.Key.ID, out.Key.ID)
}

func TestAllRoundTrip(t *testing.T) {
	in := All{
		Watermark:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		WatermarkID: "doc-7",
		Keys: map[model.Status]store.ContinuationKey{
			model.StatusPending: {
				CreatedAt: time.Date(2024, 2, 28, 9, 30, 0, 0, time.UTC),
				ID:        "doc-3",
			},
			model.StatusFinished: {
				CreatedAt: time.Date(2024, 2, 27, 8, 0, 0, 0, time.UTC),
				ID:        "doc-1",
			},
		},
	}

	raw := EncodeAll(in)
	out, err := DecodeAll(raw)
	require.NoError(t, err)

	assert.True(t, in.Watermark.Equal(out.Watermark))
	assert.Equal(t, in.WatermarkID, out.WatermarkID)
	require.Len(t, out.Keys, 2)
	assert.Equal(t, "doc-3", out.Keys[model.StatusPending].ID)
	assert.Equal(t, "doc-1", out.Keys[model.StatusFinished].ID)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"not json", base64.RawURLEncoding.EncodeToString([]byte("hello"))},
		{"empty envelope", base64.RawURLEncoding.EncodeToString([]byte("{}"))},
		{"unknown mode", base64.RawURLEncoding.EncodeToString([]byte(`{"mode":"other"}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSingle(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidCursor)

			_, err = DecodeAll(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestDecodeRejectsCrossMode(t *testing.T) {
	single := EncodeSingle(Single{Key: store.ContinuationKey{ID: "a"}})
	all := EncodeAll(All{WatermarkID: "b"})

	_, err := DecodeAll(single)
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeSingle(all)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
