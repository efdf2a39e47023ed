package config

import "time"

type Config struct {
	Environment      string
	LogFolder        string
	RecordingsFolder string
	Port             string
	ServiceURL       string
	CameraDevice     string
	MaxUploadBytes   int64
	RecordFPS        int
	TeardownTimeout  time.Duration
	S3Config         S3
}

type S3 struct {
	AccessKey   string
	SecretKey   string
	Region      string
	Bucket      string
	EndpointUrl string
}

// Enabled reports whether archiving to S3 has been configured.
func (s S3) Enabled() bool {
	return s.Bucket != ""
}
