package models

import (
	"encoding/json"
	"io"
)

type Status struct {
	StreamState StreamState `json:"streamState"`
	SubmitState SubmitState `json:"submitState"`
	Recording   bool        `json:"isRecording"`
	Uploading   bool        `json:"isUploading"`
	DiskUsage   float32     `json:"diskUsage"`
}

type FileDetails struct {
	Filename  string `json:"filename"`
	Uploading bool   `json:"isUploading"`
	Recording bool   `json:"isRecording"`
}

// SelectedFile is a file picked for submission. It is only held for the
// duration of one request.
type SelectedFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

// DetectionResult is the payload returned by the detection service.
type DetectionResult struct {
	ProcessingTime  json.Number `json:"processing_time"`
	ObjectCount     int         `json:"object_count"`
	DetectedObjects []string    `json:"detected_objects"`
	Original        string      `json:"original"`
	Result          string      `json:"result"`
	IsVideo         bool        `json:"is_video"`
	Error           string      `json:"error,omitempty"`
}

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

type Preview struct {
	Kind     MediaKind `json:"kind"`
	Src      string    `json:"src"`
	Controls bool      `json:"controls,omitempty"`
}

type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ResultView is what the results region shows for one detection.
type ResultView struct {
	ProcessingTime string       `json:"processingTime"`
	ObjectCount    string       `json:"objectCount"`
	Original       Preview      `json:"original"`
	Result         Preview      `json:"result"`
	Objects        []LabelCount `json:"objects"`
}

type SubmitState string

const (
	SubmitIdle       SubmitState = "idle"
	SubmitSubmitting SubmitState = "submitting"
	SubmitDisplaying SubmitState = "displaying-result"
	SubmitError      SubmitState = "error"
)

type StreamState string

const (
	StreamIdle     StreamState = "idle"
	StreamStarting StreamState = "starting"
	StreamActive   StreamState = "active"
)
