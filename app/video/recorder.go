package video

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/icza/mjpeg"
	"go.uber.org/atomic"

	"detectconsole/apperror"
	"detectconsole/logger"
)

const (
	defaultWidth  = 640
	defaultHeight = 480
)

// FrameSource is the live preview a recording is taken from.
type FrameSource interface {
	Active() bool
	GetFrame() []byte
}

type Recorder struct {
	isRecording atomic.Bool
	recordName  atomic.String
	folder      string
	fps         int
	source      FrameSource
	logger      *logger.Logger

	// mu serialises start and stop; it is held while the previous
	// recording is finalised.
	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func NewRecorder(folder string, fps int, source FrameSource, logger *logger.Logger) (*Recorder, error) {
	logger.LogInfo("Checking if recordings folder exists.....", "folder", folder)
	_, err := os.Stat(folder)

	if err != nil {
		logger.LogWarning(err, "recordings folder doesn't exist, creating it .......")
		if err = os.MkdirAll(folder, 0755); err != nil {
			logger.LogError(err, "Failed to create recordings folder", "folder", folder)
			return nil, err
		}
		logger.LogInfo("recordings folder created successfully")
	}

	if fps <= 0 {
		fps = 30
	}

	return &Recorder{
		folder: folder,
		fps:    fps,
		source: source,
		logger: logger,
	}, nil
}

func (r *Recorder) Folder() string {
	return r.folder
}

func (r *Recorder) RecordingStats() (bool, string) {
	return r.isRecording.Load(), r.recordName.Load()
}

// RecordingName normalises a requested name to a bare .avi file name.
func RecordingName(filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = fmt.Sprintf("recording_%s", time.Now().Format("20060102_150405"))
	}
	if !strings.HasSuffix(name, ".avi") {
		name += ".avi"
	}
	return name
}

// StartRecording writes the live preview to <folder>/<filename>.avi until
// StopRecording is called or the session ends. A running recording is
// stopped first.
func (r *Recorder) StartRecording(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.source.Active() {
		return apperror.ServiceUnavailable.SetMessage("Webcam session is not active")
	}

	r.stopLocked()

	name := RecordingName(filename)
	width, height := r.frameSize()

	aw, err := mjpeg.New(filepath.Join(r.folder, name), width, height, int32(r.fps))
	if err != nil {
		r.logger.LogError(err, "Error creating video file", "filename", name)
		return apperror.ServerError
	}

	stop := make(chan struct{})
	r.stop = stop

	r.isRecording.Store(true)
	r.recordName.Store(name)
	r.logger.LogInfo("Started recording", "filename", name)

	r.wg.Add(1)
	go func() {
		defer func() {
			if err := aw.Close(); err != nil {
				r.logger.LogError(err, "Error closing video file", "filename", name)
			}
			r.isRecording.Store(false)
			r.recordName.Store("")
			r.wg.Done()
		}()

		var previousFrame []byte
		ticker := time.NewTicker(time.Second / time.Duration(r.fps))
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}

			if !r.source.Active() {
				r.logger.LogInfo("Webcam session ended, finishing recording", "filename", name)
				return
			}

			frame := r.source.GetFrame()

			if len(frame) == 0 || bytes.Equal(frame, previousFrame) {
				continue
			}

			if err := aw.AddFrame(frame); err != nil {
				r.logger.LogError(err, "Error adding frame to video file", "filename", name)
			}
			previousFrame = frame
		}
	}()

	return nil
}

// StopRecording ends the current recording and waits for the file to be
// finalised.
func (r *Recorder) StopRecording() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
}

func (r *Recorder) stopLocked() {
	if r.stop != nil {
		r.logger.LogInfo("Stopping video recording", "filename", r.recordName.Load())
		close(r.stop)
		r.stop = nil
	}
	r.wg.Wait()
}

func (r *Recorder) frameSize() (int32, int32) {
	frame := r.source.GetFrame()
	if len(frame) == 0 {
		return defaultWidth, defaultHeight
	}

	conf, err := jpeg.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		return defaultWidth, defaultHeight
	}

	return int32(conf.Width), int32(conf.Height)
}
