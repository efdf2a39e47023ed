package upload

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detectconsole/apperror"
	"detectconsole/config"
	"detectconsole/logger"
)

type object struct {
	body        string
	contentType string
}

// fakeS3 accepts path-style PutObject requests.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
	url     string
}

func newFakeS3(t *testing.T) *fakeS3 {
	t.Helper()
	f := &fakeS3{objects: map[string]object{}}

	r := mux.NewRouter()
	r.HandleFunc("/{bucket}/{key:.+}", func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		vars := mux.Vars(req)
		f.mu.Lock()
		f.objects[vars["bucket"]+"/"+vars["key"]] = object{body: string(b), contentType: req.Header.Get("Content-Type")}
		f.mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPut)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	f.url = srv.URL
	return f
}

func (f *fakeS3) find(suffix string) (object, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, obj := range f.objects {
		if strings.HasSuffix(key, suffix) {
			return obj, true
		}
	}
	return object{}, false
}

type fakeRecorder struct {
	recording bool
	name      string
}

func (f fakeRecorder) RecordingStats() (bool, string) {
	return f.recording, f.name
}

type fakeResults struct{}

func (fakeResults) FetchResult(_ context.Context, id string) (*http.Response, error) {
	if id == "missing.jpg" {
		return nil, apperror.NotFound
	}
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "image/jpeg")
	_, _ = rec.WriteString("annotated " + id)
	return rec.Result(), nil
}

func newUploader(t *testing.T, s3 *fakeS3, rec RecordingState) (*Uploader, string) {
	t.Helper()
	folder := t.TempDir()
	u, err := NewUploader(config.S3{
		Bucket:      "archive",
		AccessKey:   "key",
		SecretKey:   "secret",
		Region:      "us-east-1",
		EndpointUrl: s3.url,
	}, folder, t.TempDir(), fakeResults{}, rec, logger.New(io.Discard))
	require.NoError(t, err)
	return u, folder
}

func TestNewUploaderRequiresBucket(t *testing.T) {
	_, err := NewUploader(config.S3{}, "", "", fakeResults{}, fakeRecorder{}, logger.New(io.Discard))
	assert.Error(t, err)
}

func TestUploadRecording(t *testing.T) {
	s3 := newFakeS3(t)
	u, folder := newUploader(t, s3, fakeRecorder{})
	require.NoError(t, os.WriteFile(filepath.Join(folder, "driveway.avi"), []byte("avi data"), 0o644))

	require.NoError(t, u.UploadRecording("driveway"))

	obj, ok := s3.find("/recordings/driveway.avi")
	require.True(t, ok)
	assert.Equal(t, "avi data", obj.body)
	assert.Equal(t, "video/x-msvideo", obj.contentType)
	assert.NoFileExists(t, filepath.Join(folder, "driveway.avi"))

	uploading, name := u.UploadStats()
	assert.False(t, uploading)
	assert.Empty(t, name)
}

func TestUploadRecordingRefusals(t *testing.T) {
	s3 := newFakeS3(t)

	u, _ := newUploader(t, s3, fakeRecorder{recording: true, name: "live.avi"})
	assert.ErrorIs(t, u.UploadRecording("live.avi"), apperror.ServiceUnavailable)
	assert.ErrorIs(t, u.UploadRecordings(), apperror.ServiceUnavailable)

	u, _ = newUploader(t, s3, fakeRecorder{})
	assert.ErrorIs(t, u.UploadRecording("ghost.avi"), apperror.NotFound)
}

func TestUploadRecordingsSkipsOtherFiles(t *testing.T) {
	s3 := newFakeS3(t)
	u, folder := newUploader(t, s3, fakeRecorder{})
	for _, name := range []string{"a.avi", "b.avi", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(folder, name), []byte(name), 0o644))
	}

	require.NoError(t, u.UploadRecordings())

	_, ok := s3.find("/recordings/a.avi")
	assert.True(t, ok)
	_, ok = s3.find("/recordings/b.avi")
	assert.True(t, ok)
	_, ok = s3.find("notes.txt")
	assert.False(t, ok)
	assert.FileExists(t, filepath.Join(folder, "notes.txt"))
}

func TestArchiveResult(t *testing.T) {
	s3 := newFakeS3(t)
	u, _ := newUploader(t, s3, fakeRecorder{})

	u.ArchiveResult("result_a.jpg")
	u.ArchiveResult("missing.jpg")
	u.Wait()

	obj, ok := s3.find("/results/result_a.jpg")
	require.True(t, ok)
	assert.Equal(t, "annotated result_a.jpg", obj.body)
	assert.Equal(t, "image/jpeg", obj.contentType)

	_, ok = s3.find("missing.jpg")
	assert.False(t, ok)
}

func TestListRecordings(t *testing.T) {
	folder := t.TempDir()
	for _, name := range []string{"b.avi", "a.avi", "x.wav"} {
		require.NoError(t, os.WriteFile(filepath.Join(folder, name), nil, 0o644))
	}

	files, err := ListRecordings(folder)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.avi", "b.avi"}, files)

	_, err = ListRecordings(filepath.Join(folder, "nope"))
	assert.Error(t, err)
}
