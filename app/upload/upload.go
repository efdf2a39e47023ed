package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"detectconsole/apperror"
	"detectconsole/config"
	"detectconsole/logger"
)

const archiveTimeout = 5 * time.Minute

// ResultFetcher opens annotated media stored on the detection service.
type ResultFetcher interface {
	FetchResult(ctx context.Context, id string) (*http.Response, error)
}

// RecordingState reports the recording currently being written, which must
// not be uploaded.
type RecordingState interface {
	RecordingStats() (bool, string)
}

type Uploader struct {
	isUploading      atomic.Bool
	uploadName       atomic.String
	bucket           string
	recordingsFolder string
	logFolder        string
	results          ResultFetcher
	recorder         RecordingState
	logger           *logger.Logger
	uploader         *s3manager.Uploader
	archives         sync.WaitGroup
}

func NewUploader(s3config config.S3, recordingsFolder, logFolder string, results ResultFetcher, recorder RecordingState, logger *logger.Logger) (*Uploader, error) {
	if !s3config.Enabled() {
		return nil, errors.New("no S3 bucket configured")
	}

	awsConfig := &aws.Config{
		Region:           aws.String(s3config.Region),
		Credentials:      credentials.NewStaticCredentials(s3config.AccessKey, s3config.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}

	if s3config.EndpointUrl != "" {
		awsConfig.Endpoint = aws.String(s3config.EndpointUrl)
	}

	sess, err := session.NewSession(awsConfig)

	if err != nil {
		return nil, err
	}

	return &Uploader{
		bucket:           s3config.Bucket,
		recordingsFolder: recordingsFolder,
		logFolder:        logFolder,
		results:          results,
		recorder:         recorder,
		logger:           logger,
		uploader:         s3manager.NewUploader(sess),
	}, nil
}

func (u *Uploader) UploadStats() (bool, string) {
	return u.isUploading.Load(), u.uploadName.Load()
}

func objectKey(kind, filename string) (string, error) {
	deviceHostName, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", deviceHostName, kind, filename), nil
}

// UploadLogs ships every log file except the one currently being written and
// removes the local copies.
func (u *Uploader) UploadLogs() {
	u.logger.LogInfo("Uploading logs to S3", "bucket", u.bucket, "folder", u.logFolder)

	dir, err := os.Open(u.logFolder)

	if err != nil {
		u.logger.LogError(err, "Error opening log folder", "folder", u.logFolder)
		return
	}

	defer func() { _ = dir.Close() }()

	filenames, err := dir.Readdirnames(0)

	if err != nil {
		u.logger.LogError(err, "Error reading log folder", "folder", u.logFolder)
		return
	}

	if len(filenames) < 2 {
		return
	}

	sort.Strings(filenames)

	filenames = filenames[:len(filenames)-1] // the newest file is the current log

	for _, filename := range filenames {
		localFilename := filepath.Join(u.logFolder, filename)
		f, err := os.ReadFile(localFilename)

		if err != nil {
			u.logger.LogError(err, "Error reading log file", "filename", localFilename)
			continue
		}

		key, err := objectKey("logs", filename)
		if err != nil {
			u.logger.LogError(err, "Error getting device hostname", "function", "UploadLogs")
			return
		}

		_, err = u.uploader.Upload(&s3manager.UploadInput{
			Bucket:      aws.String(u.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(f),
			ContentType: aws.String("text/plain"),
		})

		if err != nil {
			u.logger.LogError(err, "Error uploading log file", "filename", filename)
			continue
		}

		if err := os.Remove(localFilename); err != nil {
			u.logger.LogError(err, "Error removing log file", "filename", filename)
		}
	}
}

func (u *Uploader) begin(name string) error {
	if recording, current := u.recorder.RecordingStats(); recording && (name == "" || name == current) {
		u.logger.LogError(errors.New("recording in progress"), "Cannot upload recording while it is being written", "file_name", current)
		return apperror.ServiceUnavailable.SetMessage("Cannot upload recording while recording is in progress")
	}

	if !u.isUploading.CompareAndSwap(false, true) {
		u.logger.LogError(errors.New("upload in progress"), "Cannot upload recording while another upload is in progress")
		return apperror.ServiceUnavailable.SetMessage("Cannot upload recording while another upload is in progress")
	}

	u.uploadName.Store(name)
	return nil
}

func (u *Uploader) end() {
	u.isUploading.Store(false)
	u.uploadName.Store("")
}

// uploadFile sends one recording to S3 and deletes it locally.
func (u *Uploader) uploadFile(filename string) error {
	f := filepath.Join(u.recordingsFolder, filename)
	contents, err := os.ReadFile(f)

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			u.logger.LogError(err, "Provided file does not exist in specified folder", "folder_name", u.recordingsFolder, "file_name", filename)
			return apperror.NotFound
		}
		u.logger.LogError(err, "Error reading file", "folder_name", u.recordingsFolder, "file_name", filename)
		return apperror.ServerError
	}

	key, err := objectKey("recordings", filename)
	if err != nil {
		u.logger.LogError(err, "Error fetching device hostname", "action", "upload", "file_name", filename)
		return apperror.ServerError
	}

	_, err = u.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ACL:         aws.String("private"),
		Body:        bytes.NewReader(contents),
		ContentType: aws.String("video/x-msvideo"),
	})

	if err != nil {
		u.logger.LogError(err, "Error uploading file to S3", "folder_name", u.recordingsFolder, "file_name", filename)
		return apperror.ServerError.Wrap(err)
	}

	u.logger.LogInfo("Successful upload to S3", "folder_name", u.recordingsFolder, "file_name", filename)

	if err = os.Remove(f); err != nil {
		u.logger.LogError(err, "Error deleting file", "folder_name", u.recordingsFolder, "file_name", filename)
		return apperror.ServerError
	}

	u.logger.LogInfo("Successful deletion of file", "folder_name", u.recordingsFolder, "file_name", filename)

	return nil
}

func (u *Uploader) UploadRecording(filename string) error {
	filename = filepath.Base(filename)
	if !strings.HasSuffix(filename, ".avi") {
		filename += ".avi"
	}

	if err := u.begin(filename); err != nil {
		return err
	}
	defer u.end()

	return u.uploadFile(filename)
}

// UploadRecordings uploads every finished recording, carrying on past
// individual failures and reporting all of them.
func (u *Uploader) UploadRecordings() error {
	if err := u.begin(""); err != nil {
		return err
	}
	defer u.end()

	u.logger.LogInfo("Uploading all recordings to S3", "folder_name", u.recordingsFolder)
	files, err := ListRecordings(u.recordingsFolder)

	if err != nil {
		u.logger.LogError(err, "Error reading recordings folder", "function", "UploadRecordings", "folder_name", u.recordingsFolder)
		return apperror.ServerError
	}

	var errs error
	for _, file := range files {
		u.uploadName.Store(file)
		errs = multierr.Append(errs, u.uploadFile(file))
	}

	return errs
}

// ArchiveResult copies an annotated result from the detection service to S3
// in the background.
func (u *Uploader) ArchiveResult(id string) {
	u.archives.Add(1)
	go func() {
		defer u.archives.Done()

		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		if err := u.archiveResult(ctx, id); err != nil {
			u.logger.LogError(err, "Error archiving detection result", "result", id)
		}
	}()
}

func (u *Uploader) archiveResult(ctx context.Context, id string) error {
	resp, err := u.results.FetchResult(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch result: %w", err)
	}
	defer resp.Body.Close()

	key, err := objectKey("results", id)
	if err != nil {
		return err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ACL:         aws.String("private"),
		Body:        resp.Body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload result: %w", err)
	}

	u.logger.LogInfo("Archived detection result to S3", "result", id, "key", key)
	return nil
}

// Wait blocks until background archives have finished.
func (u *Uploader) Wait() {
	u.archives.Wait()
}

// ListRecordings returns the .avi files in folder, sorted by name.
func ListRecordings(folder string) ([]string, error) {
	fd, err := os.Open(folder)
	if err != nil {
		return nil, err
	}

	defer func() { _ = fd.Close() }()

	names, err := fd.Readdirnames(0)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, name := range names {
		if filepath.Ext(name) != ".avi" {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)

	return files, nil
}
