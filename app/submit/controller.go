// Package submit validates a chosen file, sends it to the detection service
// and renders the outcome into the upload form.
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"detectconsole/app/event"
	"detectconsole/apperror"
	"detectconsole/logger"
	"detectconsole/models"
)

type Button interface {
	SetDisabled(disabled bool)
	SetBusy(busy bool)
}

type MessageRegion interface {
	Show(text string)
	Hide()
}

type ResultsRegion interface {
	Show(view models.ResultView)
	Hide()
}

// Elements are the parts of the upload form the controller drives. Message
// may be nil, in which case errors go to Alert.
type Elements struct {
	Submit  Button
	Message MessageRegion
	Results ResultsRegion
	Alert   func(msg string)
}

type Detector interface {
	Detect(ctx context.Context, file *models.SelectedFile, requestID string) (*models.DetectionResult, error)
}

type Archiver interface {
	ArchiveResult(id string)
}

type Controller struct {
	loop     *event.Loop
	detector Detector
	archiver Archiver
	elements Elements
	maxBytes int64
	logger   *logger.Logger

	// owned by the event loop
	state models.SubmitState
}

func NewController(loop *event.Loop, detector Detector, elements Elements, maxBytes int64, logger *logger.Logger) *Controller {
	return &Controller{
		loop:     loop,
		detector: detector,
		elements: elements,
		maxBytes: maxBytes,
		logger:   logger,
		state:    models.SubmitIdle,
	}
}

// SetArchiver enables archiving of every successful result.
func (c *Controller) SetArchiver(a Archiver) {
	c.archiver = a
}

func (c *Controller) State() models.SubmitState {
	state := models.SubmitIdle
	_ = c.loop.Do(func() { state = c.state })
	return state
}

// Submit sends file to the detection service and renders the result. It
// blocks until the request completes; the submit control is disabled for the
// duration and always re-enabled afterwards.
func (c *Controller) Submit(ctx context.Context, file *models.SelectedFile) (*models.ResultView, error) {
	var err error
	if loopErr := c.loop.Do(func() { err = c.begin(file) }); loopErr != nil {
		return nil, apperror.ServiceUnavailable.Wrap(loopErr)
	}
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	c.logger.LogInfo("submitting file for detection", "request_id", requestID, "file_name", file.Name, "size", file.Size)

	started := time.Now()
	res, err := c.detector.Detect(ctx, file, requestID)

	var view *models.ResultView
	if loopErr := c.loop.Do(func() { view, err = c.complete(res, err) }); loopErr != nil {
		// the loop is gone, so nothing else touches the form any more
		c.logger.LogWarning(loopErr, "event loop closed during submission", "request_id", requestID)
		view, err = c.complete(res, err)
	}

	if err != nil {
		c.logger.LogInfo("detection request finished without a result", "request_id", requestID, "elapsed", time.Since(started).String())
		return nil, err
	}

	c.logger.LogInfo("detection result displayed", "request_id", requestID, "result", res.Result, "object_count", res.ObjectCount, "elapsed", time.Since(started).String())

	if c.archiver != nil {
		c.archiver.ArchiveResult(res.Result)
	}

	return view, nil
}

func (c *Controller) begin(file *models.SelectedFile) error {
	if c.state == models.SubmitSubmitting {
		// the control is disabled, so the click goes nowhere
		return apperror.ServiceUnavailable.SetMessage("A submission is already in progress")
	}

	if file == nil {
		return c.reject(apperror.ValidationError.SetMessage("Please select a file first"))
	}

	if file.Size > c.maxBytes {
		return c.reject(apperror.ValidationError.SetMessage(fmt.Sprintf("File size exceeds %dMB limit", c.maxBytes/(1024*1024))))
	}

	c.elements.Submit.SetDisabled(true)
	c.elements.Submit.SetBusy(true)
	c.elements.Results.Hide()
	if c.elements.Message != nil {
		c.elements.Message.Hide()
	}
	c.state = models.SubmitSubmitting

	return nil
}

func (c *Controller) reject(err apperror.Apperror) error {
	c.showError(err.Message())
	c.state = models.SubmitError
	return err
}

func (c *Controller) complete(res *models.DetectionResult, err error) (*models.ResultView, error) {
	defer func() {
		c.elements.Submit.SetDisabled(false)
		c.elements.Submit.SetBusy(false)
	}()

	if err == nil && res == nil {
		err = apperror.RemoteError
	}

	if err != nil {
		c.showError(messageOf(err))
		c.state = models.SubmitError
		return nil, err
	}

	view := Render(*res)
	c.elements.Results.Show(view)
	c.state = models.SubmitDisplaying

	return &view, nil
}

func (c *Controller) showError(msg string) {
	if c.elements.Message != nil {
		c.elements.Message.Show(msg)
		return
	}
	if c.elements.Alert != nil {
		c.elements.Alert(msg)
	}
}

func messageOf(err error) string {
	var appErr apperror.Apperror
	if errors.As(err, &appErr) && appErr.Message() != "" {
		return appErr.Message()
	}
	return apperror.RemoteError.Message()
}
