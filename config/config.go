package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort            = "8080"
	defaultServiceURL      = "http://127.0.0.1:5000"
	defaultCameraDevice    = "/dev/video0"
	defaultMaxUploadMB     = 16
	defaultRecordFPS       = 30
	defaultTeardownTimeout = 2 * time.Second
)

var Conf Config

func Load() {
	var err error

	_, err = os.Stat(".env")

	if err != nil {
		log.Println(".env file does not exist\nReading from the environment directly")
	} else {
		err = godotenv.Load(".env")

		if err != nil {
			log.Fatal(err)
		}
	}

	Conf = FromEnv()
}

// FromEnv builds a Config from the current process environment, filling defaults
// for anything unset or unparsable.
func FromEnv() Config {
	return Config{
		Environment:      os.Getenv("ENVIRONMENT"),
		LogFolder:        getEnv("LOG_FOLDER", "logs"),
		RecordingsFolder: getEnv("RECORDINGS_FOLDER", "recordings"),
		Port:             getEnv("PORT", defaultPort),
		ServiceURL:       strings.TrimRight(getEnv("DETECT_SERVICE_URL", defaultServiceURL), "/"),
		CameraDevice:     getEnv("CAMERA_DEVICE", defaultCameraDevice),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", defaultMaxUploadMB)) * 1024 * 1024,
		RecordFPS:        getEnvInt("RECORD_FPS", defaultRecordFPS),
		TeardownTimeout:  getEnvDuration("TEARDOWN_TIMEOUT", defaultTeardownTimeout),
		S3Config: S3{
			Bucket:      os.Getenv("S3_BUCKET_NAME"),
			AccessKey:   os.Getenv("S3_ACCESS_KEY"),
			SecretKey:   os.Getenv("S3_SECRET_KEY"),
			Region:      os.Getenv("S3_REGION"),
			EndpointUrl: os.Getenv("S3_ENDPOINT_URL"),
		},
	}
}

func GetConfig() Config {
	return Conf
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil || val <= 0 {
		return defaultVal
	}
	return val
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, err := time.ParseDuration(os.Getenv(key))
	if err != nil || val <= 0 {
		return defaultVal
	}
	return val
}
