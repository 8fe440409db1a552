package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLocalStorePutOpenRemove(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	blob, err := s.Put(ctx, Upload{OriginalName: "paper.pdf", Size: -1, Body: strings.NewReader("%PDF-1.4")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(blob.Name, "1700000000000-"))
	assert.True(t, strings.HasSuffix(blob.Name, "-paper.pdf"))
	assert.Equal(t, filepath.Join(s.Dir(), blob.Name), blob.Path)
	assert.Equal(t, int64(8), blob.Size)

	rc, err := s.Open(ctx, blob.Name)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{blob.Name}, names)

	require.NoError(t, s.Remove(ctx, blob.Name))
	assert.ErrorIs(t, s.Remove(ctx, blob.Name), ErrBlobNotFound)

	_, err = s.Open(ctx, blob.Name)
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestLocalStoreRejectsInvalidNames(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	_, err := s.Open(ctx, "../secret")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.ErrorIs(t, s.Remove(ctx, "../../etc/passwd"), ErrInvalidName)
}

func TestLocalStoreListSkipsTempFiles(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), ".upload-123"), []byte("partial"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "sub"), 0755))
	blob, err := s.Put(ctx, Upload{OriginalName: "a.txt", Body: strings.NewReader("a")})
	require.NoError(t, err)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{blob.Name}, names)
}

type failingReader struct{ after int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := min(len(p), f.after)
	f.after -= n
	return n, nil
}

func TestLocalStorePutFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	_, err := s.Put(ctx, Upload{OriginalName: "a.txt", Body: &failingReader{after: 10}})
	require.Error(t, err)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStorePutHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newLocal(t)

	_, err := s.Put(ctx, Upload{OriginalName: "a.txt", Body: strings.NewReader("data")})
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStorePutSameInstantKeepsEveryBlob(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	const count = 200
	names := make(map[string]int, count)
	for i := 0; i < count; i++ {
		blob, err := s.Put(ctx, Upload{OriginalName: "a.txt", Size: -1, Body: strings.NewReader(fmt.Sprintf("blob-%d", i))})
		require.NoError(t, err)
		prev, dup := names[blob.Name]
		require.False(t, dup, "put %d reused name %s of put %d", i, blob.Name, prev)
		names[blob.Name] = i
	}

	for name, i := range names {
		data, err := os.ReadFile(filepath.Join(s.Dir(), name))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("blob-%d", i), string(data))
	}
}

func TestLocalStorePutNeverReplacesExistingBlob(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	taken := "1700000000000-aaaaaaaaaaaaaaaa-a.txt"
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), taken), []byte("original"), 0644))

	calls := 0
	s.newName = func(now time.Time, original string) string {
		calls++
		if calls == 1 {
			return taken
		}
		return "1700000000000-bbbbbbbbbbbbbbbb-a.txt"
	}

	blob, err := s.Put(ctx, Upload{OriginalName: "a.txt", Body: strings.NewReader("second")})
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-bbbbbbbbbbbbbbbb-a.txt", blob.Name)
	assert.Equal(t, 2, calls)

	data, err := os.ReadFile(filepath.Join(s.Dir(), taken))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{taken, blob.Name}, names)
}

func TestLocalStorePutGivesUpWhenNamesStayTaken(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	taken := "1700000000000-aaaaaaaaaaaaaaaa-a.txt"
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), taken), []byte("original"), 0644))
	s.newName = func(time.Time, string) string { return taken }

	_, err := s.Put(ctx, Upload{OriginalName: "a.txt", Body: strings.NewReader("second")})
	require.ErrorIs(t, err, os.ErrExist)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{taken}, names)
	data, err := os.ReadFile(filepath.Join(s.Dir(), taken))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}
