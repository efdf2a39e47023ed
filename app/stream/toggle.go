// Package stream drives the live webcam preview served by the detection
// service.
package stream

import (
	"bytes"
	"context"
	"errors"
	"time"

	"detectconsole/app/detect"
	"detectconsole/app/event"
	"detectconsole/apperror"
	"detectconsole/logger"
	"detectconsole/models"
)

const feedFailedMessage = "Failed to start video feed. Please try again."

type Button interface {
	SetDisabled(disabled bool)
}

type ImageSource interface {
	SetSource(src string)
}

type Visibility interface {
	SetVisible(visible bool)
}

type MessageRegion interface {
	Show(text string)
	Hide()
}

// Elements are the parts of the webcam section the toggle drives. Message
// may be nil, in which case errors go to Alert.
type Elements struct {
	Start     Button
	Stop      Button
	Feed      ImageSource
	Container Visibility
	Notice    Visibility
	Message   MessageRegion
	Alert     func(msg string)
}

type Service interface {
	FeedURL() string
	OpenFeed(ctx context.Context) (*detect.Feed, error)
	StopCamera(ctx context.Context) error
}

type Toggle struct {
	loop            *event.Loop
	service         Service
	prober          Prober
	elements        Elements
	frames          *Frames
	teardownTimeout time.Duration
	logger          *logger.Logger

	// owned by the event loop
	state    models.StreamState
	gen      uint64
	stopping bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewToggle(loop *event.Loop, service Service, prober Prober, elements Elements, teardownTimeout time.Duration, logger *logger.Logger) *Toggle {
	return &Toggle{
		loop:            loop,
		service:         service,
		prober:          prober,
		elements:        elements,
		frames:          NewFrames(),
		teardownTimeout: teardownTimeout,
		logger:          logger,
		state:           models.StreamIdle,
	}
}

func (t *Toggle) State() models.StreamState {
	state := models.StreamIdle
	_ = t.loop.Do(func() { state = t.state })
	return state
}

func (t *Toggle) Active() bool {
	return t.State() == models.StreamActive
}

// GetFrame returns the latest frame of the preview, or nil.
func (t *Toggle) GetFrame() []byte {
	return t.frames.GetFrame()
}

// Start confirms a camera is available and points the preview at the live
// feed. Calling it while a session is starting or active does nothing.
func (t *Toggle) Start(_ context.Context) error {
	proceed := false
	if err := t.loop.Do(func() {
		if t.state != models.StreamIdle {
			return
		}
		t.state = models.StreamStarting
		proceed = true
	}); err != nil {
		return apperror.ServiceUnavailable.Wrap(err)
	}

	if !proceed {
		return nil
	}

	if err := t.prober.Probe(); err != nil {
		_ = t.loop.Do(func() {
			t.showError(messageOf(err, apperror.UnsupportedError))
			if t.state == models.StreamStarting {
				t.state = models.StreamIdle
			}
		})
		return err
	}

	feedCtx, cancel := context.WithCancel(context.Background())
	var gen uint64
	started := false

	if err := t.loop.Do(func() {
		// a stop may have landed while probing
		if t.state != models.StreamStarting {
			return
		}
		t.gen++
		gen = t.gen
		t.cancel = cancel
		t.done = make(chan struct{})
		t.stopping = false

		t.elements.Feed.SetSource(t.service.FeedURL())
		t.elements.Start.SetDisabled(true)
		t.elements.Stop.SetDisabled(false)
		t.elements.Container.SetVisible(true)
		t.elements.Notice.SetVisible(false)
		if t.elements.Message != nil {
			t.elements.Message.Hide()
		}

		t.state = models.StreamActive
		started = true
	}); err != nil || !started {
		cancel()
		if err != nil {
			return apperror.ServiceUnavailable.Wrap(err)
		}
		return apperror.ServiceUnavailable.SetMessage("Webcam start was cancelled")
	}

	t.logger.LogInfo("Webcam session started", "feed", t.service.FeedURL())
	go t.consume(feedCtx, gen)

	return nil
}

func (t *Toggle) consume(ctx context.Context, gen uint64) {
	err := t.pump(ctx)

	if ctx.Err() != nil {
		return
	}

	failed := false
	_ = t.loop.Do(func() {
		if t.gen != gen || t.state != models.StreamActive || t.stopping {
			return
		}
		failed = true
		t.showError(feedFailedMessage)
	})

	if failed {
		t.logger.LogWarning(err, "Video feed ended unexpectedly")
		_ = t.Stop(context.Background())
	}
}

func (t *Toggle) pump(ctx context.Context) error {
	feed, err := t.service.OpenFeed(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = feed.Close() }()

	return t.frames.Pump(feed)
}

// Stop tells the service to release the camera and resets the preview. When
// no session is active the request is best effort and Stop never fails.
func (t *Toggle) Stop(ctx context.Context) error {
	wasActive := false
	if err := t.loop.Do(func() {
		wasActive = t.state == models.StreamActive
		t.stopping = true
	}); err != nil {
		return apperror.ServiceUnavailable.Wrap(err)
	}

	err := t.service.StopCamera(ctx)
	report := err != nil && wasActive
	msg := "Error stopping camera: " + messageOf(err, apperror.RemoteError)

	_ = t.loop.Do(func() {
		t.clear()
		if report {
			t.showError(msg)
		}
	})

	if report {
		return apperror.RemoteError.SetMessage(msg).Wrap(err)
	}

	if wasActive {
		t.logger.LogInfo("Webcam session stopped")
	}

	return nil
}

// Teardown ends an active session as the console shuts down. Failures are
// ignored.
func (t *Toggle) Teardown() {
	active := false
	_ = t.loop.Do(func() {
		active = t.state == models.StreamActive
		if active {
			t.stopping = true
		}
	})

	if !active {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.teardownTimeout)
	defer cancel()
	_ = t.service.StopCamera(ctx)

	_ = t.loop.Do(t.clear)
}

func (t *Toggle) clear() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.done != nil {
		close(t.done)
		t.done = nil
	}

	t.elements.Feed.SetSource("")
	t.elements.Start.SetDisabled(false)
	t.elements.Stop.SetDisabled(true)
	t.elements.Container.SetVisible(false)
	t.elements.Notice.SetVisible(true)

	t.frames.Reset()
	t.stopping = false
	t.state = models.StreamIdle
}

// Subscribe streams new frames of the active session at roughly 30 fps. The
// frame channel closes when the session ends or closeChan is closed.
func (t *Toggle) Subscribe() (chan []byte, chan struct{}, error) {
	var done chan struct{}
	_ = t.loop.Do(func() {
		if t.state == models.StreamActive {
			done = t.done
		}
	})

	if done == nil {
		return nil, nil, apperror.ServiceUnavailable.SetMessage("Webcam session is not active")
	}

	streamChan := make(chan []byte, 32)
	closeChan := make(chan struct{})

	go func() {
		defer close(streamChan)

		var previousFrame []byte
		ticker := time.NewTicker(33 * time.Millisecond) // 30 fps
		defer ticker.Stop()

		for {
			select {
			case <-closeChan:
				return
			case <-done:
				return
			case <-ticker.C:
				frame := t.frames.GetFrame()

				if len(frame) == 0 || bytes.Equal(frame, previousFrame) {
					continue
				}

				select {
				case streamChan <- frame:
					previousFrame = frame
				default:
				}
			}
		}
	}()

	return streamChan, closeChan, nil
}

func (t *Toggle) showError(msg string) {
	if t.elements.Message != nil {
		t.elements.Message.Show(msg)
		return
	}
	if t.elements.Alert != nil {
		t.elements.Alert(msg)
	}
}

func messageOf(err error, fallback apperror.Apperror) string {
	var appErr apperror.Apperror
	if errors.As(err, &appErr) && appErr.Message() != "" {
		return appErr.Message()
	}
	if err != nil {
		return err.Error()
	}
	return fallback.Message()
}
