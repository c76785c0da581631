package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Static errors for the Google TTS client.
var (
	// ErrServerError is returned when the endpoint answers with a 5xx status.
	ErrServerError = errors.New("speech: google tts server error")
	// ErrRateLimited is returned when the endpoint answers with 429.
	ErrRateLimited = errors.New("speech: google tts rate limited")
	// ErrRequestFailed is returned for any other non-2xx status.
	ErrRequestFailed = errors.New("speech: google tts request failed")
)

// MaxChunkLength is the longest text the TTS endpoint accepts per request.
const MaxChunkLength = 100

const defaultGoogleTTSURL = "https://translate.google.com/translate_tts"

// GoogleSynthesizer speaks text through the Google Translate TTS endpoint.
// Long text is split into chunks whose MP3 responses are concatenated.
type GoogleSynthesizer struct {
	baseURL     string
	httpClient  *http.Client
	slow        bool
	maxRetries  int
	baseBackoff time.Duration
}

// GoogleOption configures a GoogleSynthesizer.
type GoogleOption func(*GoogleSynthesizer)

// WithBaseURL overrides the TTS endpoint URL.
func WithBaseURL(u string) GoogleOption {
	return func(g *GoogleSynthesizer) {
		g.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(g *GoogleSynthesizer) {
		g.httpClient = c
	}
}

// WithSlow reads text at a slower pace.
func WithSlow(slow bool) GoogleOption {
	return func(g *GoogleSynthesizer) {
		g.slow = slow
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) GoogleOption {
	return func(g *GoogleSynthesizer) {
		g.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) GoogleOption {
	return func(g *GoogleSynthesizer) {
		g.baseBackoff = d
	}
}

// NewGoogleSynthesizer creates a GoogleSynthesizer.
func NewGoogleSynthesizer(opts ...GoogleOption) *GoogleSynthesizer {
	g := &GoogleSynthesizer{
		baseURL:     defaultGoogleTTSURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Synthesize fetches audio for each chunk of text and writes the
// concatenated MP3 stream to dst.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text, langCode, dst string) error {
	if err := checkInput(text, langCode); err != nil {
		return err
	}

	chunks := SplitText(text, MaxChunkLength)
	var audio bytes.Buffer
	for i, chunk := range chunks {
		data, err := g.fetchWithRetry(ctx, g.chunkURL(chunk, langCode, i, len(chunks)))
		if err != nil {
			return fmt.Errorf("speech: chunk %d/%d: %w", i+1, len(chunks), err)
		}
		audio.Write(data)
	}

	return writeAudio(dst, &audio)
}

// Name returns "google".
func (g *GoogleSynthesizer) Name() string { return "google" }

func (g *GoogleSynthesizer) chunkURL(chunk, langCode string, idx, total int) string {
	speed := "1"
	if g.slow {
		speed = "0.3"
	}
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", chunk)
	q.Set("tl", langCode)
	q.Set("client", "tw-ob")
	q.Set("ttsspeed", speed)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))
	return g.baseURL + "?" + q.Encode()
}

// fetchWithRetry performs a GET with exponential backoff retry.
func (g *GoogleSynthesizer) fetchWithRetry(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	backoff := g.baseBackoff

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("speech: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		data, err := g.fetch(ctx, u)
		if err == nil {
			return data, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("speech: max retries exceeded: %w", lastErr)
}

// fetch performs a single request.
func (g *GoogleSynthesizer) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("speech: create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://translate.google.com/")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("speech: context cancelled: %w", ctx.Err())
		}
		return nil, &retryableError{err: fmt.Errorf("speech: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("speech: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return nil, &retryableError{err: fmt.Errorf("%w %d", ErrServerError, resp.StatusCode)}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, &retryableError{err: ErrRateLimited}
		}
		return nil, fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

// SplitText breaks text into chunks of at most limit runes. Chunks end at
// sentence punctuation or word boundaries; words longer than limit are cut.
func SplitText(text string, limit int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > limit {
			flush()
			r := []rune(word)
			chunks = append(chunks, string(r[:limit]))
			word = string(r[limit:])
		}

		n := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+n > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += n

		if endsSentence(word) {
			flush()
		}
	}
	flush()

	return chunks
}

func endsSentence(word string) bool {
	r, _ := utf8.DecodeLastRuneInString(word)
	return r == ';' || unicode.Is(unicode.Sentence_Terminal, r)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
