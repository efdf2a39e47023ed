package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DETECT_SERVICE_URL", "CAMERA_DEVICE", "MAX_UPLOAD_MB", "RECORD_FPS", "TEARDOWN_TIMEOUT", "S3_BUCKET_NAME"} {
		t.Setenv(key, "")
	}

	conf := FromEnv()

	assert.Equal(t, "8080", conf.Port)
	assert.Equal(t, "http://127.0.0.1:5000", conf.ServiceURL)
	assert.Equal(t, "/dev/video0", conf.CameraDevice)
	assert.Equal(t, int64(16*1024*1024), conf.MaxUploadBytes)
	assert.Equal(t, 30, conf.RecordFPS)
	assert.Equal(t, 2*time.Second, conf.TeardownTimeout)
	assert.False(t, conf.S3Config.Enabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DETECT_SERVICE_URL", "http://detector:5000/")
	t.Setenv("MAX_UPLOAD_MB", "4")
	t.Setenv("TEARDOWN_TIMEOUT", "500ms")
	t.Setenv("RECORD_FPS", "not-a-number")
	t.Setenv("S3_BUCKET_NAME", "archive")

	conf := FromEnv()

	assert.Equal(t, "9090", conf.Port)
	assert.Equal(t, "http://detector:5000", conf.ServiceURL)
	assert.Equal(t, int64(4*1024*1024), conf.MaxUploadBytes)
	assert.Equal(t, 500*time.Millisecond, conf.TeardownTimeout)
	assert.Equal(t, 30, conf.RecordFPS)
	assert.True(t, conf.S3Config.Enabled())
}
