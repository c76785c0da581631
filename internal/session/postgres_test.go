package session

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPostgresRepo connects to TEST_DATABASE_URL or skips the test.
func newPostgresRepo(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres test")
	}

	ctx := context.Background()
	db, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewPostgresRepository(ctx, db)
	require.NoError(t, err)
	return repo
}

func TestPostgresRepository_RoundTrip(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	s := New()
	s.SetVideo("clip.mp4", "/data/clip.mp4", 4.2)
	require.NoError(t, s.SetExtracted("/data/output_audio.wav", "Dummy text for demonstration"))
	s.RecordStep(StepRecord{Name: StepExtract, Status: StepSucceeded, Provider: "placeholder"})
	require.NoError(t, repo.Save(ctx, s))
	t.Cleanup(func() { _ = repo.Delete(ctx, s.ID) })

	found, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StageExtracted, found.Stage)
	assert.Equal(t, "Dummy text for demonstration", found.ExtractedText)
	assert.Equal(t, 4.2, found.DurationSec)
	require.Len(t, found.Steps, 1)
	assert.Equal(t, "placeholder", found.Steps[0].Provider)

	require.NoError(t, found.SetTranslated("es", "Spanish", "Texto"))
	require.NoError(t, repo.Save(ctx, found))

	updated, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StageTranslated, updated.Stage)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, l := range list {
		ids = append(ids, l.ID)
	}
	assert.Contains(t, ids, s.ID)
}

func TestPostgresRepository_NotFound(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = repo.Delete(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDecodeSession(t *testing.T) {
	s, err := decodeSession([]byte(`{"id":"abc","stage":"UPLOADED","video_path":"/v.mp4"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", s.ID)
	assert.Equal(t, StageUploaded, s.Stage)
	assert.NotNil(t, s.Steps)

	_, err = decodeSession([]byte(`not json`))
	assert.Error(t, err)
}
