package service

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/storage"
)

type memoryBlobStore struct {
	files   map[string]string
	deleted []string
}

func (m *memoryBlobStore) SaveStream(name string, r io.Reader, limit int64) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if limit > 0 && int64(len(data)) > limit {
		return 0, storage.ErrTooLarge
	}
	if m.files == nil {
		m.files = map[string]string{}
	}
	m.files[name] = string(data)
	return int64(len(data)), nil
}

func (m *memoryBlobStore) Delete(name string) error {
	m.deleted = append(m.deleted, name)
	delete(m.files, name)
	return nil
}

func TestUploadServiceStore(t *testing.T) {
	store := &memoryBlobStore{}
	svc := NewUploadService(store, UploadConfig{MaxFileSize: 16}, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) }

	name, err := svc.Store(UploadSubmissions, "Lesson Plan.PDF", strings.NewReader("plan"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "submissions/2024/03/"))
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.Equal(t, "plan", store.files[name])

	svc.Remove(name)
	assert.Empty(t, store.files)
}

func TestUploadServiceRejects(t *testing.T) {
	svc := NewUploadService(&memoryBlobStore{}, UploadConfig{MaxFileSize: 4}, nil)

	_, err := svc.Store(UploadStudents, "virus.exe", strings.NewReader("x"))
	assert.True(t, errors.Is(err, appErrors.ErrUnsupportedMedia))

	_, err = svc.Store(UploadStudents, "big.pdf", strings.NewReader("too large"))
	assert.True(t, errors.Is(err, appErrors.ErrFileTooLarge))
}
