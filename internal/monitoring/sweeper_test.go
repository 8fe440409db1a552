package monitoring

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/manuscript-be/internal/database"
	"github.com/isdelr/manuscript-be/internal/models"
	"github.com/isdelr/manuscript-be/internal/services"
	"github.com/isdelr/manuscript-be/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrphanSweeper(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	events := services.NewEventService(db, nil)
	manuscripts := services.NewManuscriptService(db, blobs, events, nil)

	m, err := manuscripts.SubmitManuscript(ctx,
		models.Submission{Name: "A", Email: "a@x.com", Title: "T", Abstract: "Abs"},
		&storage.Upload{OriginalName: "kept.pdf", Size: 1, Body: strings.NewReader("k")}, nil)
	require.NoError(t, err)

	now := time.Now()
	old := storage.BlobName(now.Add(-time.Hour), "orphan.pdf")
	young := storage.BlobName(now.Add(-time.Minute), "fresh.pdf")
	for _, name := range []string{old, young, "not-a-blob.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(blobs.Dir(), name), []byte("x"), 0644))
	}

	sweeper, err := NewOrphanSweeper("@every 1h", 15*time.Minute, blobs, manuscripts, events)
	require.NoError(t, err)
	sweeper.now = func() time.Time { return now }

	removed, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{old}, removed)

	left, err := blobs.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{m.FileName, young, "not-a-blob.txt"}, left)

	recent, err := events.GetRecentEvents(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, recent)
	assert.Equal(t, services.EventOrphanBlobRemoved, recent[0].Type)

	// A second pass finds nothing new.
	removed, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestNewOrphanSweeperRejectsBadSchedule(t *testing.T) {
	_, err := NewOrphanSweeper("every now and then", time.Minute, nil, nil, nil)
	require.Error(t, err)
}

func TestOrphanSweeperStartStop(t *testing.T) {
	sweeper, err := NewOrphanSweeper("@every 1h", time.Minute, nil, nil, nil)
	require.NoError(t, err)
	sweeper.Start()
	sweeper.Stop()
}
