package image

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefs struct {
	names map[string]struct{}
	err   error
}

func (f fakeRefs) ReferencedImages(ctx context.Context) (map[string]struct{}, error) {
	return f.names, f.err
}

func TestSweeperRemovesOldUnreferencedImages(t *testing.T) {
	now := time.Now()
	old := now.Add(-2 * time.Hour)
	store := &fakeStore{objects: []Object{
		{Name: "kept.png", ModTime: old},
		{Name: "orphan.png", ModTime: old},
		{Name: "fresh.png", ModTime: now.Add(-time.Minute)},
	}}
	refs := fakeRefs{names: map[string]struct{}{"kept.png": {}}}

	sweeper := NewSweeper(store, refs, 0, time.Hour, nil)
	sweeper.nowFunc = func() time.Time { return now }

	res, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, []string{"orphan.png"}, store.removed)
}

func TestSweeperKeepsEverythingWhenReferencesUnavailable(t *testing.T) {
	store := &fakeStore{objects: []Object{{Name: "orphan.png", ModTime: time.Now().Add(-48 * time.Hour)}}}
	sweeper := NewSweeper(store, fakeRefs{err: errors.New("collection unreadable")}, 0, time.Hour, nil)

	_, err := sweeper.RunOnce(context.Background())
	require.Error(t, err)
	assert.Empty(t, store.removed)
}

func TestSweeperCountsFailures(t *testing.T) {
	store := &fakeStore{
		objects:   []Object{{Name: "a.png", ModTime: time.Now().Add(-48 * time.Hour)}},
		removeErr: errors.New("permission denied"),
	}
	sweeper := NewSweeper(store, fakeRefs{names: map[string]struct{}{}}, 0, time.Hour, nil)

	res, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Removed)
	assert.Equal(t, 1, res.Failed)
}

func TestSweeperStartStop(t *testing.T) {
	store := &fakeStore{objects: []Object{{Name: "a.png", ModTime: time.Now().Add(-48 * time.Hour)}}}
	sweeper := NewSweeper(store, fakeRefs{names: map[string]struct{}{}}, 10*time.Millisecond, time.Hour, nil)

	sweeper.Start(context.Background())
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.removed) > 0
	}, time.Second, 5*time.Millisecond)
	sweeper.Stop()
}

func TestSweeperDisabledWithoutInterval(t *testing.T) {
	sweeper := NewSweeper(&fakeStore{}, fakeRefs{}, 0, time.Hour, nil)
	sweeper.Start(context.Background())
	sweeper.Stop()
}

func TestSweeperRemovesStaleTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStore(dir)
	now := time.Now()

	stale := filepath.Join(dir, "1_aaaa.png.tmp")
	fresh := filepath.Join(dir, "2_bbbb.png.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("in flight"), 0o644))
	require.NoError(t, os.Chtimes(stale, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))

	sweeper := NewSweeper(store, fakeRefs{names: map[string]struct{}{}}, 0, time.Hour, nil)
	sweeper.nowFunc = func() time.Time { return now }

	res, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.TempRemoved)
	assert.Zero(t, res.Scanned)

	_, err = os.Stat(stale)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}
