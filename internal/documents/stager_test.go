package documents

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStager(t *testing.T) {
	ctx := context.Background()
	stager := NewMemoryStager()

	data := []byte("%PDF-1.4")
	key, err := stager.Put(ctx, "d-1", 2, Object{Name: "convenio.pdf", ContentType: "application/pdf", Data: data})
	require.NoError(t, err)
	assert.Equal(t, "d-1/slot-2", key)
	data[0] = 'X'

	got, err := stager.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "convenio.pdf", got.Name)
	assert.Equal(t, []byte("%PDF-1.4"), got.Data)
	assert.Equal(t, 1, stager.Len())

	require.NoError(t, stager.Delete(ctx, key))
	_, err = stager.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, stager.Len())
}

func TestMemoryStagerRejectsBadObjects(t *testing.T) {
	ctx := context.Background()
	stager := NewMemoryStager()

	_, err := stager.Put(ctx, "d-1", 0, Object{Name: "big.pdf", Data: make([]byte, MaxSize+1)})
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = stager.Put(ctx, "d-1", 0, Object{Name: "empty.pdf"})
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Zero(t, stager.Len())
}

type storedObject struct {
	data        []byte
	contentType string
	filename    string
}

// fakeBucket answers path-style S3 object requests from memory.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]storedObject
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		b.objects[r.URL.Path] = storedObject{
			data:        data,
			contentType: r.Header.Get("Content-Type"),
			filename:    r.Header.Get("X-Amz-Meta-Filename"),
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		obj, ok := b.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("X-Amz-Meta-Filename", obj.filename)
		_, _ = w.Write(obj.data)
	case http.MethodDelete:
		delete(b.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3Stager(t *testing.T) (*S3Stager, *fakeBucket) {
	t.Helper()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	t.Setenv("AWS_REQUEST_CHECKSUM_CALCULATION", "when_required")
	t.Setenv("AWS_RESPONSE_CHECKSUM_VALIDATION", "when_required")

	bucket := &fakeBucket{objects: map[string]storedObject{}}
	server := httptest.NewServer(bucket)
	t.Cleanup(server.Close)

	stager, err := NewS3Stager(context.Background(), S3Config{
		Bucket:   "drafts",
		Region:   "us-east-1",
		Endpoint: server.URL,
		Prefix:   "staging/",
	})
	require.NoError(t, err)
	return stager, bucket
}

func TestS3Stager(t *testing.T) {
	ctx := context.Background()
	stager, bucket := newTestS3Stager(t)

	key, err := stager.Put(ctx, "d-1", 1, Object{Name: "hoja-de-vida.pdf", Data: []byte("contenido")})
	require.NoError(t, err)
	assert.Equal(t, "d-1/slot-1", key)

	stored, ok := bucket.objects["/drafts/staging/d-1/slot-1"]
	require.True(t, ok)
	assert.Equal(t, "contenido", string(stored.data))
	assert.Equal(t, "application/octet-stream", stored.contentType)
	assert.Equal(t, "hoja-de-vida.pdf", stored.filename)

	got, err := stager.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "hoja-de-vida.pdf", got.Name)
	assert.Equal(t, []byte("contenido"), got.Data)

	require.NoError(t, stager.Delete(ctx, key))
	_, err = stager.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3StagerChecksObjectsBeforeUpload(t *testing.T) {
	stager, bucket := newTestS3Stager(t)

	_, err := stager.Put(context.Background(), "d-1", 0, Object{Name: "big.pdf", Data: []byte(strings.Repeat("x", MaxSize+1))})
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Empty(t, bucket.objects)
}
