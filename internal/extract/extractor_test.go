package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholderExtractor_AlwaysReturnsPlaceholder(t *testing.T) {
	e := NewPlaceholderExtractor()

	inputs := []string{"", "/tmp/output_audio.wav", "/does/not/exist.wav"}
	for _, in := range inputs {
		text, err := e.Extract(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, "Dummy text for demonstration", text)
	}
	assert.Equal(t, "placeholder", e.Name())
}

func TestPlaceholderExtractor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPlaceholderExtractor().Extract(ctx, "a.wav")
	assert.ErrorIs(t, err, context.Canceled)
}
