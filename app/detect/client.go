// Package detect talks to the remote object-detection service.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"detectconsole/apperror"
	"detectconsole/models"
)

const (
	DetectPath     = "/detect_objects"
	FeedPath       = "/video_feed"
	StopCameraPath = "/stop_camera"
	ResultsPrefix  = "/results/"

	maxFrameBytes = 8 << 20
)

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the service rooted at baseURL. A nil
// httpClient gets one without a timeout; uploads are bounded by the service.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// ResultPath is where the service exposes an annotated or original media file.
func ResultPath(id string) string {
	return ResultsPrefix + url.PathEscape(id)
}

func (c *Client) FeedURL() string {
	return c.baseURL + FeedPath
}

// Detect uploads file as the multipart field "file" and decodes the result.
// Every failure is returned as an apperror.RemoteError carrying the service's
// own message when it sent one.
func (c *Client) Detect(ctx context.Context, file *models.SelectedFile, requestID string) (*models.DetectionResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, apperror.RemoteError.Wrap(fmt.Errorf("create form file: %w", err))
	}

	if file.Content != nil {
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, apperror.RemoteError.Wrap(fmt.Errorf("copy file data: %w", err))
		}
	}

	if err := writer.Close(); err != nil {
		return nil, apperror.RemoteError.Wrap(fmt.Errorf("close multipart writer: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+DetectPath, body)
	if err != nil {
		return nil, apperror.RemoteError.Wrap(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.RemoteError.Wrap(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	var result models.DetectionResult
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if result.Error != "" {
		return nil, apperror.RemoteError.SetMessage(result.Error)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.RemoteError.Wrap(fmt.Errorf("detection failed with status: %d", resp.StatusCode))
	}

	if decodeErr != nil {
		return nil, apperror.RemoteError.Wrap(fmt.Errorf("decode response: %w", decodeErr))
	}

	return &result, nil
}

// StopCamera asks the service to release its camera. The JSON body only has
// to parse.
func (c *Client) StopCamera(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+StopCameraPath, nil)
	if err != nil {
		return apperror.RemoteError.Wrap(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.RemoteError.SetMessage(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperror.RemoteError.SetMessage(fmt.Sprintf("stop camera failed with status: %d", resp.StatusCode))
	}

	var ack map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return apperror.RemoteError.SetMessage(fmt.Sprintf("decode stop camera response: %v", err))
	}

	return nil
}

// Feed is an open multipart/x-mixed-replace stream of JPEG frames.
type Feed struct {
	body   io.ReadCloser
	reader *multipart.Reader
}

func (c *Client) OpenFeed(ctx context.Context) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeedURL(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("video feed failed with status: %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected video feed content type %q", resp.Header.Get("Content-Type"))
	}

	return &Feed{
		body:   resp.Body,
		reader: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

// NextFrame blocks until the next frame has been read in full.
func (f *Feed) NextFrame() ([]byte, error) {
	part, err := f.reader.NextPart()
	if err != nil {
		return nil, err
	}
	defer part.Close()

	return io.ReadAll(io.LimitReader(part, maxFrameBytes))
}

func (f *Feed) Close() error {
	return f.body.Close()
}

// FetchResult opens a stored media file on the service. The caller closes the
// returned body.
func (c *Client) FetchResult(ctx context.Context, id string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ResultPath(id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, apperror.NotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, apperror.RemoteError.SetMessage(fmt.Sprintf("fetch result failed with status: %d", resp.StatusCode))
	}

	return resp, nil
}
