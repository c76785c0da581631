package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/voiceover-api/internal/extract"
	"github.com/maauso/voiceover-api/internal/session"
	"github.com/maauso/voiceover-api/internal/storage"
	"github.com/maauso/voiceover-api/internal/translate"
)

var mp4Header = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 2, 0, 'i', 's', 'o', 'm', 'm', 'p', '4', '2'}

type stubProcessor struct{ mock.Mock }

func (m *stubProcessor) Resize(ctx context.Context, src, dst string, height int) error {
	return m.Called(ctx, src, dst, height).Error(0)
}

func (m *stubProcessor) ExtractAudio(ctx context.Context, src, dst string) error {
	return m.Called(ctx, src, dst).Error(0)
}

func (m *stubProcessor) GetMediaDuration(ctx context.Context, path string) (float64, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(float64), args.Error(1)
}

type echoTranslator struct{}

func (echoTranslator) Translate(_ context.Context, text string, lang translate.Language) (string, error) {
	return "[" + lang.Code + "] " + text, nil
}

func (echoTranslator) Name() string { return "echo" }

type fileSynthesizer struct{}

func (fileSynthesizer) Synthesize(_ context.Context, text, _, dst string) error {
	return os.WriteFile(dst, []byte(text), 0o600)
}

func (fileSynthesizer) Name() string { return "file" }

func newTestService(t *testing.T) (*session.Service, *stubProcessor) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	proc := new(stubProcessor)
	proc.On("GetMediaDuration", mock.Anything, mock.Anything).Return(1.0, nil)
	proc.On("ExtractAudio", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := session.NewService(session.NewMemoryRepository(), store, proc,
		extract.NewPlaceholderExtractor(), echoTranslator{}, fileSynthesizer{})
	return svc, proc
}

func TestLanguagesCommand(t *testing.T) {
	cmd := CreateRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"languages"})

	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, len(translate.Languages())+1)
	assert.Contains(t, out.String(), "Spanish")
	assert.Contains(t, out.String(), "zh-cn")
}

func TestRootCommand_HelpExamplesUseCatalogueLanguages(t *testing.T) {
	cmd := CreateRootCommand()

	var found int
	for _, line := range strings.Split(cmd.Long, "\n") {
		fields := strings.Fields(line)
		for i, f := range fields {
			if (f == "--language" || f == "-l") && i+1 < len(fields) {
				_, err := translate.Lookup(fields[i+1])
				assert.NoError(t, err, "example %q", strings.TrimSpace(line))
				found++
			}
		}
	}
	assert.Positive(t, found)
}

func TestRunCommand_RequiresFlags(t *testing.T) {
	cmd := CreateRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--video", "x.mp4"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "language")
}

func TestRun(t *testing.T) {
	svc, proc := newTestService(t)
	ctx := context.Background()

	video := filepath.Join(t.TempDir(), "talk.mp4")
	require.NoError(t, os.WriteFile(video, append(append([]byte{}, mp4Header...), "frames"...), 0o600))
	outDir := filepath.Join(t.TempDir(), "out")

	var out bytes.Buffer
	err := Run(ctx, svc, &RunFlags{Video: video, Language: "German", OutputDir: outDir}, &out)
	require.NoError(t, err)

	audio, err := os.ReadFile(filepath.Join(outDir, "output_audio.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "[de] Dummy text for demonstration", string(audio))

	videoOut, err := os.ReadFile(filepath.Join(outDir, "output_video.mp4"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(videoOut, mp4Header))

	assert.Contains(t, out.String(), "Translated (German)")
	proc.AssertNotCalled(t, "Resize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions, "session should be removed without --keep")
}

func TestRun_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := Run(ctx, svc, &RunFlags{Video: "missing.mp4", Language: "Latin"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, translate.ErrUnsupportedLanguage)

	err = Run(ctx, svc, &RunFlags{Video: filepath.Join(t.TempDir(), "missing.mp4"), Language: "fr"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	notVideo := filepath.Join(t.TempDir(), "notes.mp4")
	require.NoError(t, os.WriteFile(notVideo, []byte("just some text"), 0o600))
	err = Run(ctx, svc, &RunFlags{Video: notVideo, Language: "fr", OutputDir: t.TempDir()}, &bytes.Buffer{})
	assert.ErrorIs(t, err, session.ErrUnsupportedFormat)
}
