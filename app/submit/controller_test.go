package submit

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detectconsole/app/event"
	"detectconsole/app/ui"
	"detectconsole/apperror"
	"detectconsole/logger"
	"detectconsole/models"
)

const maxBytes = 16 * 1024 * 1024

type fakeDetector struct {
	mu     sync.Mutex
	calls  int
	result *models.DetectionResult
	err    error
	// observed is called while the request is outstanding.
	observed func()
}

func (f *fakeDetector) Detect(_ context.Context, _ *models.SelectedFile, _ string) (*models.DetectionResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.observed != nil {
		f.observed()
	}
	return f.result, f.err
}

func (f *fakeDetector) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeArchiver struct {
	ids []string
}

func (f *fakeArchiver) ArchiveResult(id string) {
	f.ids = append(f.ids, id)
}

func newController(t *testing.T, d Detector) (*Controller, *ui.Board) {
	t.Helper()
	loop := event.NewLoop()
	t.Cleanup(loop.Close)

	board := ui.NewBoard()
	c := NewController(loop, d, Elements{
		Submit:  board.SubmitButton,
		Message: board.Message,
		Results: board.Results,
		Alert:   board.Alert,
	}, maxBytes, logger.New(io.Discard))

	return c, board
}

func file(size int64) *models.SelectedFile {
	return &models.SelectedFile{Name: "street.jpg", Size: size, Content: strings.NewReader("data")}
}

func TestSubmitRejectsOversizedFileWithoutNetwork(t *testing.T) {
	for _, size := range []int64{maxBytes + 1, maxBytes * 2, 1 << 40} {
		d := &fakeDetector{}
		c, board := newController(t, d)

		view, err := c.Submit(context.Background(), file(size))

		assert.Nil(t, view)
		require.ErrorIs(t, err, apperror.ValidationError)
		assert.Zero(t, d.Calls())
		assert.Equal(t, "File size exceeds 16MB limit", board.Message.Text())
		assert.False(t, board.SubmitButton.Disabled())
		assert.Equal(t, models.SubmitError, c.State())
	}
}

func TestSubmitAcceptsFileAtLimit(t *testing.T) {
	d := &fakeDetector{result: &models.DetectionResult{Original: "a.jpg", Result: "result_a.jpg"}}
	c, _ := newController(t, d)

	_, err := c.Submit(context.Background(), file(maxBytes))
	require.NoError(t, err)
	assert.Equal(t, 1, d.Calls())
}

func TestSubmitRequiresFile(t *testing.T) {
	d := &fakeDetector{}
	c, board := newController(t, d)

	_, err := c.Submit(context.Background(), nil)

	require.ErrorIs(t, err, apperror.ValidationError)
	assert.Zero(t, d.Calls())
	assert.Equal(t, "Please select a file first", board.Message.Text())
	assert.True(t, board.Message.Visible())
}

func TestSubmitRendersImageResult(t *testing.T) {
	d := &fakeDetector{result: &models.DetectionResult{
		ProcessingTime:  "0.42",
		ObjectCount:     3,
		DetectedObjects: []string{"car", "car", "person"},
		Original:        "street.jpg",
		Result:          "result_20240101_120000_street.jpg",
	}}
	c, board := newController(t, d)
	archiver := &fakeArchiver{}
	c.SetArchiver(archiver)

	view, err := c.Submit(context.Background(), file(1024))
	require.NoError(t, err)

	assert.Equal(t, "0.42", view.ProcessingTime)
	assert.Equal(t, "3", view.ObjectCount)
	assert.Equal(t, models.Preview{Kind: models.MediaImage, Src: "/results/street.jpg"}, view.Original)
	assert.Equal(t, models.Preview{Kind: models.MediaImage, Src: "/results/result_20240101_120000_street.jpg"}, view.Result)
	assert.Equal(t, []models.LabelCount{{Label: "car", Count: 2}, {Label: "person", Count: 1}}, view.Objects)

	assert.True(t, board.Results.Visible())
	assert.Equal(t, view, board.Results.View())
	assert.False(t, board.SubmitButton.Disabled())
	assert.Equal(t, "Detect Objects", board.SubmitButton.Label())
	assert.Equal(t, models.SubmitDisplaying, c.State())
	assert.Equal(t, []string{"result_20240101_120000_street.jpg"}, archiver.ids)
}

func TestSubmitRendersVideoResult(t *testing.T) {
	d := &fakeDetector{result: &models.DetectionResult{Original: "clip.mp4", Result: "result_clip.mp4", IsVideo: true}}
	c, _ := newController(t, d)

	view, err := c.Submit(context.Background(), file(1024))
	require.NoError(t, err)

	assert.Equal(t, models.MediaVideo, view.Original.Kind)
	assert.Equal(t, models.MediaVideo, view.Result.Kind)
	assert.True(t, view.Result.Controls)
	assert.Equal(t, "/results/clip.mp4", view.Original.Src)
	assert.Equal(t, "/results/result_clip.mp4", view.Result.Src)
}

func TestSubmitSurfacesRemoteErrorVerbatim(t *testing.T) {
	d := &fakeDetector{err: apperror.RemoteError.SetMessage("no objects found")}
	c, board := newController(t, d)
	archiver := &fakeArchiver{}
	c.SetArchiver(archiver)

	view, err := c.Submit(context.Background(), file(1024))

	assert.Nil(t, view)
	require.ErrorIs(t, err, apperror.RemoteError)
	assert.Equal(t, "no objects found", board.Message.Text())
	assert.False(t, board.Results.Visible())
	assert.Nil(t, board.Snapshot().Result)
	assert.False(t, board.SubmitButton.Disabled())
	assert.Empty(t, archiver.ids)
}

func TestSubmitControlDisabledWhileOutstanding(t *testing.T) {
	var board *ui.Board
	var disabled, busy bool
	d := &fakeDetector{result: &models.DetectionResult{}}
	d.observed = func() {
		disabled = board.SubmitButton.Disabled()
		busy = board.SubmitButton.Busy()
	}

	var c *Controller
	c, board = newController(t, d)

	_, err := c.Submit(context.Background(), file(10))
	require.NoError(t, err)

	assert.True(t, disabled)
	assert.True(t, busy)
	assert.False(t, board.SubmitButton.Disabled())
	assert.False(t, board.SubmitButton.Busy())
}

func TestSubmitRestoresControlOnTransportFailure(t *testing.T) {
	d := &fakeDetector{err: io.ErrUnexpectedEOF}
	c, board := newController(t, d)

	_, err := c.Submit(context.Background(), file(10))

	require.Error(t, err)
	assert.Equal(t, "An error occurred during processing", board.Message.Text())
	assert.False(t, board.SubmitButton.Disabled())
	assert.Equal(t, models.SubmitError, c.State())
}

func TestSubmitClearsPreviousResult(t *testing.T) {
	d := &fakeDetector{result: &models.DetectionResult{Original: "a.jpg", Result: "result_a.jpg"}}
	c, board := newController(t, d)

	_, err := c.Submit(context.Background(), file(10))
	require.NoError(t, err)
	require.True(t, board.Results.Visible())

	d.result, d.err = nil, apperror.RemoteError.SetMessage("File type not allowed.")
	_, err = c.Submit(context.Background(), file(10))

	require.Error(t, err)
	assert.False(t, board.Results.Visible())
	assert.Equal(t, "File type not allowed.", board.Message.Text())
}

func TestSubmitFallsBackToAlert(t *testing.T) {
	loop := event.NewLoop()
	defer loop.Close()
	board := ui.NewBoard()

	c := NewController(loop, &fakeDetector{}, Elements{
		Submit:  board.SubmitButton,
		Results: board.Results,
		Alert:   board.Alert,
	}, maxBytes, logger.New(io.Discard))

	_, err := c.Submit(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, []string{"Please select a file first"}, board.Alerts())
}

func TestSubmitRestoresControlWhenLoopClosesMidRequest(t *testing.T) {
	loop := event.NewLoop()
	board := ui.NewBoard()
	d := &fakeDetector{
		result:   &models.DetectionResult{Original: "a.jpg", Result: "result_a.jpg"},
		observed: loop.Close,
	}

	c := NewController(loop, d, Elements{
		Submit:  board.SubmitButton,
		Message: board.Message,
		Results: board.Results,
	}, maxBytes, logger.New(io.Discard))

	view, err := c.Submit(context.Background(), file(10))

	require.NoError(t, err)
	assert.Equal(t, "/results/result_a.jpg", view.Result.Src)
	assert.False(t, board.SubmitButton.Disabled())
	assert.False(t, board.SubmitButton.Busy())
	assert.True(t, board.Results.Visible())
}
