package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/voiceover-api/internal/audio"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "output_audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF----WAVEfmt "), 0o600))
	return path
}

func TestNewWhisperExtractor_RequiresKey(t *testing.T) {
	_, err := NewWhisperExtractor("")
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

func TestWhisperExtractor_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "output_audio.wav", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  hello world  "}`))
	}))
	defer server.Close()

	e, err := NewWhisperExtractor("test-key", WithBaseURL(server.URL+"/v1"))
	require.NoError(t, err)

	text, err := e.Extract(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, "whisper", e.Name())
}

func TestWhisperExtractor_EmptyTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":""}`))
	}))
	defer server.Close()

	e, err := NewWhisperExtractor("test-key", WithBaseURL(server.URL+"/v1"))
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), writeAudio(t))
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestWhisperExtractor_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	e, err := NewWhisperExtractor("test-key", WithBaseURL(server.URL+"/v1"), WithModel("whisper-large"))
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), writeAudio(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcription")
}

// fakeSplitter writes n chunk files and records its options.
type fakeSplitter struct {
	n    int
	opts audio.SplitOpts
	dir  string
	err  error
}

func (f *fakeSplitter) Split(_ context.Context, _, outputDir string, opts audio.SplitOpts) ([]string, error) {
	f.opts = opts
	f.dir = outputDir
	if f.err != nil {
		return nil, f.err
	}
	paths := make([]string, 0, f.n)
	for i := 0; i < f.n; i++ {
		p := filepath.Join(outputDir, fmt.Sprintf("chunk_%03d.wav", i))
		if err := os.WriteFile(p, []byte("RIFF"), 0o600); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func TestWhisperExtractor_Chunked(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)

		n := calls.Add(1)
		assert.Equal(t, fmt.Sprintf("chunk_%03d.wav", n-1), header.Filename)

		text := map[int32]string{1: "first part.", 2: "", 3: "third part."}[n]
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"text":%q}`, text)
	}))
	defer server.Close()

	splitter := &fakeSplitter{n: 3}
	opts := audio.SplitOpts{ChunkTargetSec: 300}
	e, err := NewWhisperExtractor("test-key", WithBaseURL(server.URL+"/v1"), WithSplitter(splitter, opts))
	require.NoError(t, err)

	text, err := e.Extract(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "first part. third part.", text)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, opts, splitter.opts)

	_, statErr := os.Stat(splitter.dir)
	assert.True(t, os.IsNotExist(statErr), "chunk directory should be removed")
}

func TestWhisperExtractor_SplitError(t *testing.T) {
	e, err := NewWhisperExtractor("test-key", WithSplitter(&fakeSplitter{err: audio.ErrInputNotFound}, audio.SplitOpts{}))
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), writeAudio(t))
	assert.ErrorIs(t, err, audio.ErrInputNotFound)
}
