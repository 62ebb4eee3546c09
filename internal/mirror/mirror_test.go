package mirror

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kagglesync/internal/core/logger"
	"kagglesync/internal/core/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	objects map[string][]byte
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Exists(_ context.Context, bucket, key string) (bool, error) {
	_, ok := s.objects[bucket+"/"+key]
	return ok, nil
}

func (s *memStore) DownloadFile(_ context.Context, bucket, key, destPath string) (types.Bytes, error) {
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return 0, os.ErrNotExist
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, err
	}
	return types.Bytes(len(data)), os.WriteFile(destPath, data, 0o644)
}

func (s *memStore) UploadFile(_ context.Context, srcPath, bucket, key string, callback types.RWCallback) error {
	if s.failPut {
		return errors.New("upload refused")
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	if callback != nil {
		callback(int64(len(data)))
	}
	s.objects[bucket+"/"+key] = data
	return nil
}

type countingReporter struct {
	started, done int
	total         int64
}

func (r *countingReporter) Start(string, int64) { r.started++ }
func (r *countingReporter) Add(_ string, n int64) { r.total += n }
func (r *countingReporter) Done(string) { r.done++ }

func TestKeyLayout(t *testing.T) {
	m := NewS3Mirror(newMemStore(), "bucket", "/kaggle/", WithLogger(logger.Discard()))

	assert.Equal(t, "kaggle/competition/titanic.zip", m.Key(types.KindCompetition, "titanic"))
	assert.Equal(t, "kaggle/dataset/owner/covid.zip", m.Key(types.KindDataset, "owner/covid"))

	bare := NewS3Mirror(newMemStore(), "bucket", "", WithLogger(logger.Discard()))
	assert.Equal(t, "competition/titanic.zip", bare.Key(types.KindCompetition, "titanic"))
}

func TestPutThenGet(t *testing.T) {
	store := newMemStore()
	reporter := &countingReporter{}
	m := NewS3Mirror(store, "bucket", "kaggle", WithLogger(logger.Discard()), WithReporter(reporter))
	ctx := context.Background()
	dir := t.TempDir()

	src := filepath.Join(dir, "titanic.zip")
	require.NoError(t, os.WriteFile(src, []byte("archive"), 0o644))
	require.NoError(t, m.Put(ctx, types.KindCompetition, "titanic", src))
	assert.Contains(t, store.objects, "bucket/kaggle/competition/titanic.zip")
	assert.Equal(t, 1, reporter.started)
	assert.Equal(t, 1, reporter.done)
	assert.EqualValues(t, len("archive"), reporter.total)

	dest := filepath.Join(dir, "out", "titanic.zip")
	found, err := m.Get(ctx, types.KindCompetition, "titanic", dest)
	require.NoError(t, err)
	assert.True(t, found)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive", string(data))
}

func TestGetMissing(t *testing.T) {
	m := NewS3Mirror(newMemStore(), "bucket", "kaggle", WithLogger(logger.Discard()))
	dest := filepath.Join(t.TempDir(), "x.zip")

	found, err := m.Get(context.Background(), types.KindDataset, "owner/x", dest)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoFileExists(t, dest)
}

func TestPutError(t *testing.T) {
	store := newMemStore()
	store.failPut = true
	m := NewS3Mirror(store, "bucket", "", WithLogger(logger.Discard()))

	src := filepath.Join(t.TempDir(), "a.zip")
	require.NoError(t, os.WriteFile(src, []byte("a"), 0o644))
	assert.Error(t, m.Put(context.Background(), types.KindCompetition, "a", src))
}

func TestFromConfigDisabled(t *testing.T) {
	m, err := FromConfig(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = FromConfig(&types.MirrorConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}
