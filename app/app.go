package app

import (
	"context"
	"errors"
	"io"

	"detectconsole/app/detect"
	"detectconsole/app/event"
	"detectconsole/app/helper"
	"detectconsole/app/stream"
	"detectconsole/app/submit"
	"detectconsole/app/ui"
	"detectconsole/app/upload"
	"detectconsole/app/video"
	"detectconsole/apperror"
	"detectconsole/config"
	"detectconsole/logger"
	"detectconsole/models"
)

// ResultMedia is an open media file from the detection service. The caller
// closes Body.
type ResultMedia struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

type App struct {
	board     *ui.Board
	loop      *event.Loop
	client    *detect.Client
	submitter *submit.Controller
	toggle    *stream.Toggle
	recorder  *video.Recorder
	uploader  *upload.Uploader
	logger    *logger.Logger
	maxUpload int64
}

func NewApp(conf config.Config, logger *logger.Logger) (*App, error) {
	board := ui.NewBoard()
	loop := event.NewLoop()
	client := detect.NewClient(conf.ServiceURL, nil)

	logger.LogInfo("Initializing submission controller", "service", conf.ServiceURL, "max_upload_bytes", conf.MaxUploadBytes)
	submitter := submit.NewController(loop, client, submit.Elements{
		Submit:  board.SubmitButton,
		Message: board.Message,
		Results: board.Results,
		Alert:   board.Alert,
	}, conf.MaxUploadBytes, logger)

	logger.LogInfo("Initializing webcam toggle", "device", conf.CameraDevice)
	toggle := stream.NewToggle(loop, client, stream.DeviceProber{Path: conf.CameraDevice}, stream.Elements{
		Start:     board.StartButton,
		Stop:      board.StopButton,
		Feed:      board.Feed,
		Container: board.Container,
		Notice:    board.Notice,
		Message:   board.Message,
		Alert:     board.Alert,
	}, conf.TeardownTimeout, logger)

	logger.LogInfo("Initializing recorder")
	recorder, err := video.NewRecorder(conf.RecordingsFolder, conf.RecordFPS, toggle, logger)

	if err != nil {
		logger.LogError(err, "Error initializing recorder")
		loop.Close()
		return nil, err
	}

	a := &App{
		board:     board,
		loop:      loop,
		client:    client,
		submitter: submitter,
		toggle:    toggle,
		recorder:  recorder,
		logger:    logger,
		maxUpload: conf.MaxUploadBytes,
	}

	if conf.S3Config.Enabled() {
		logger.LogInfo("Initializing uploader", "bucket", conf.S3Config.Bucket)
		uploader, err := upload.NewUploader(conf.S3Config, conf.RecordingsFolder, conf.LogFolder, client, recorder, logger)

		if err != nil {
			logger.LogError(err, "Error initializing uploader")
		} else {
			a.uploader = uploader
			submitter.SetArchiver(uploader)
			uploader.UploadLogs()
		}
	}

	return a, nil
}

// MaxUploadBytes is the largest file Submit accepts.
func (a *App) MaxUploadBytes() int64 {
	return a.maxUpload
}

func (a *App) Board() ui.Snapshot {
	return a.board.Snapshot()
}

func (a *App) Submit(ctx context.Context, file *models.SelectedFile) (*models.ResultView, error) {
	return a.submitter.Submit(ctx, file)
}

func (a *App) StartStream(ctx context.Context) error {
	return a.toggle.Start(ctx)
}

func (a *App) StopStream(ctx context.Context) error {
	a.recorder.StopRecording()
	return a.toggle.Stop(ctx)
}

// Stream re-serves the live preview frames for the local MJPEG endpoint.
func (a *App) Stream() (chan []byte, chan struct{}, error) {
	frames, closeChan, err := a.toggle.Subscribe()

	if err != nil {
		a.logger.LogDebug("Stream requested without an active session")
	}

	return frames, closeChan, err
}

func (a *App) StartRecording(filename string) error {
	return a.recorder.StartRecording(filename)
}

func (a *App) StopRecording() {
	a.recorder.StopRecording()
}

// FetchResult proxies a stored media file from the detection service.
func (a *App) FetchResult(ctx context.Context, id string) (*ResultMedia, error) {
	resp, err := a.client.FetchResult(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.NotFound) {
			return nil, err
		}
		a.logger.LogError(err, "Error fetching result media", "result", id)
		return nil, apperror.RemoteError.Wrap(err)
	}

	return &ResultMedia{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

func (a *App) uploaderOrErr() (*upload.Uploader, error) {
	if a.uploader == nil {
		return nil, apperror.ServiceUnavailable.SetMessage("Archiving to S3 is not configured")
	}
	return a.uploader, nil
}

func (a *App) UploadRecording(filename string) error {
	u, err := a.uploaderOrErr()
	if err != nil {
		return err
	}
	return u.UploadRecording(filename)
}

func (a *App) UploadRecordings() error {
	u, err := a.uploaderOrErr()
	if err != nil {
		return err
	}
	return u.UploadRecordings()
}

func (a *App) FetchRecordings() ([]models.FileDetails, error) {
	folder := a.recorder.Folder()
	a.logger.LogInfo("Fetching available recordings", "folder_name", folder)

	files, err := upload.ListRecordings(folder)

	if err != nil {
		a.logger.LogError(err, "Error reading recordings folder", "folder_name", folder)
		return nil, apperror.ServerError
	}

	fileDetails := make([]models.FileDetails, 0, len(files))

	for _, file := range files {
		fileDetail := models.FileDetails{
			Filename: file,
		}

		if recording, filename := a.recorder.RecordingStats(); recording && file == filename {
			fileDetail.Recording = true
		} else if a.uploader != nil {
			if uploading, filename := a.uploader.UploadStats(); uploading && file == filename {
				fileDetail.Uploading = true
			}
		}

		fileDetails = append(fileDetails, fileDetail)
	}

	return fileDetails, nil
}

func (a *App) AppStatus() *models.Status {
	recording, _ := a.recorder.RecordingStats()
	status := &models.Status{
		StreamState: a.toggle.State(),
		SubmitState: a.submitter.State(),
		Recording:   recording,
	}

	if a.uploader != nil {
		status.Uploading, _ = a.uploader.UploadStats()
	}

	usage, err := helper.DiskUsage(a.recorder.Folder())
	if err != nil {
		a.logger.LogError(err, "Error getting disk usage")
	}
	status.DiskUsage = usage

	return status
}

// EndSession finishes any recording and stops a live session on a best
// effort basis. Stream subscribers see their channel closed.
func (a *App) EndSession() {
	a.recorder.StopRecording()
	a.toggle.Teardown()
}

// Close tears the console down. Pending archive uploads are waited for
// before the event loop goes away.
func (a *App) Close() {
	a.EndSession()
	if a.uploader != nil {
		a.uploader.Wait()
	}
	a.loop.Close()
}
