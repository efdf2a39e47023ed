package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/gorilla/mux"

	"detectconsole/app"
	"detectconsole/apperror"
	"detectconsole/logger"
	"detectconsole/models"
	"detectconsole/web/helper"
)

const (
	maxFormMemory = 32 << 20
	// room for the multipart framing around the file itself
	formOverhead = 1 << 20
)

type Controller struct {
	logger *logger.Logger
	app    *app.App
}

func NewController(app *app.App, logger *logger.Logger) *Controller {
	return &Controller{
		app:    app,
		logger: logger,
	}
}

// Detect accepts a multipart upload in the "file" field and runs it through
// the submission controller.
func (c *Controller) Detect(w http.ResponseWriter, r *http.Request) {
	limit := c.app.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)

	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrMissingFile) {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			helper.ReturnFailure(w, apperror.InvalidRequest)
			return
		}

		// only the size is known; let the submission controller reject it
		size := r.ContentLength
		if size <= limit {
			size = limit + 1
		}
		_, err = c.app.Submit(r.Context(), &models.SelectedFile{Size: size})
		helper.ReturnFailure(w, err)
		return
	}

	var selected *models.SelectedFile

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		selected = &models.SelectedFile{
			Name:    header.Filename,
			Size:    header.Size,
			Content: file,
		}
	}

	view, err := c.app.Submit(r.Context(), selected)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	helper.ReturnSuccess(w, view)
}

func (c *Controller) Board(w http.ResponseWriter, _ *http.Request) {
	helper.ReturnSuccess(w, c.app.Board())
}

func (c *Controller) StartStream(w http.ResponseWriter, r *http.Request) {
	if err := c.app.StartStream(r.Context()); err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	helper.ReturnSuccess(w, map[string]string{"status": "streaming"})
}

func (c *Controller) StopStream(w http.ResponseWriter, r *http.Request) {
	if err := c.app.StopStream(r.Context()); err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	helper.ReturnSuccess(w, map[string]string{"status": "stopped"})
}

func (c *Controller) ShowStream(w http.ResponseWriter, _ *http.Request) {
	frames, closeChan, err := c.app.Stream()

	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}
	defer close(closeChan)

	mimeWriter := multipart.NewWriter(w)
	w.Header().Set("Content-Type", fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", mimeWriter.Boundary()))
	partHeader := make(textproto.MIMEHeader)
	partHeader.Add("Content-Type", "image/jpeg")
	flusher, _ := w.(http.Flusher)

	for frame := range frames {
		part, err := mimeWriter.CreatePart(partHeader)
		if err != nil {
			c.logger.LogError(err, "Error creating part")
			return
		}

		if _, err = part.Write(frame); err != nil {
			c.logger.LogError(err, "Error writing frame")
			return
		}

		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (c *Controller) StartRecording(w http.ResponseWriter, r *http.Request) {
	p := struct {
		Filename string `json:"filename"`
	}{}

	if err := json.NewDecoder(r.Body).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		c.logger.LogError(err, "Error getting filename for recording from request")
		helper.ReturnFailure(w, apperror.InvalidRequest)
		return
	}

	if err := c.app.StartRecording(p.Filename); err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	helper.ReturnSuccess(w, nil)
}

func (c *Controller) StopRecording(w http.ResponseWriter, _ *http.Request) {
	c.app.StopRecording()
	c.logger.LogInfo("stopping recording")
	helper.ReturnSuccess(w, nil)
}

func (c *Controller) UploadFile(w http.ResponseWriter, r *http.Request) {
	c.logger.LogInfo("upload file request received")

	file := struct {
		FileName string `json:"fileName"`
	}{}

	if err := json.NewDecoder(r.Body).Decode(&file); err != nil || file.FileName == "" {
		helper.ReturnFailure(w, apperror.InvalidRequest)
		return
	}

	if err := c.app.UploadRecording(file.FileName); err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	helper.ReturnSuccess(w, nil)
}

func (c *Controller) ListFiles(w http.ResponseWriter, _ *http.Request) {
	c.logger.LogInfo("list files request received")

	files, err := c.app.FetchRecordings()

	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	helper.ReturnSuccess(w, files)
}

func (c *Controller) UploadAllFiles(w http.ResponseWriter, _ *http.Request) {
	c.logger.LogInfo("upload all files request received")
	err := c.app.UploadRecordings()

	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	helper.ReturnSuccess(w, nil)
}

func (c *Controller) DeviceStatus(w http.ResponseWriter, _ *http.Request) {
	c.logger.LogInfo("fetching console status")
	helper.ReturnSuccess(w, c.app.AppStatus())
}

// Results proxies /results/{name} so previews resolve against the console.
func (c *Controller) Results(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	media, err := c.app.FetchResult(r.Context(), name)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}
	defer media.Body.Close()

	if media.ContentType != "" {
		w.Header().Set("Content-Type", media.ContentType)
	}
	if media.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(media.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, media.Body); err != nil {
		c.logger.LogError(err, "Error streaming result media", "result", name)
	}
}
