package ui

import (
	"sync"

	"detectconsole/models"
)

// Board is the whole console page: the upload form and the webcam section.
type Board struct {
	SubmitButton *Button
	Message      *Message
	Results      *Results

	StartButton *Button
	StopButton  *Button
	Feed        *Image
	Container   *Panel
	Notice      *Panel

	mu     sync.Mutex
	alerts []string
}

func NewBoard() *Board {
	stop := NewButton("Stop Webcam")
	stop.SetDisabled(true)

	return &Board{
		SubmitButton: NewButton("Detect Objects"),
		Message:      &Message{},
		Results:      &Results{},
		StartButton:  NewButton("Start Webcam"),
		StopButton:   stop,
		Feed:         &Image{},
		Container:    NewPanel(false),
		Notice:       NewPanel(true),
	}
}

// Alert is the modal fallback used when no message region is wired.
func (b *Board) Alert(msg string) {
	b.mu.Lock()
	b.alerts = append(b.alerts, msg)
	b.mu.Unlock()
}

func (b *Board) Alerts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.alerts...)
}

type ButtonSnapshot struct {
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

type Snapshot struct {
	Submit         ButtonSnapshot     `json:"submit"`
	Message        string             `json:"message,omitempty"`
	MessageVisible bool               `json:"messageVisible"`
	Result         *models.ResultView `json:"result,omitempty"`
	Start          ButtonSnapshot     `json:"start"`
	Stop           ButtonSnapshot     `json:"stop"`
	FeedSource     string             `json:"feedSource"`
	FeedVisible    bool               `json:"feedVisible"`
	NoticeVisible  bool               `json:"noticeVisible"`
}

func snapButton(b *Button) ButtonSnapshot {
	return ButtonSnapshot{Label: b.Label(), Disabled: b.Disabled()}
}

func (b *Board) Snapshot() Snapshot {
	s := Snapshot{
		Submit:         snapButton(b.SubmitButton),
		Message:        b.Message.Text(),
		MessageVisible: b.Message.Visible(),
		Start:          snapButton(b.StartButton),
		Stop:           snapButton(b.StopButton),
		FeedSource:     b.Feed.Source(),
		FeedVisible:    b.Container.Visible(),
		NoticeVisible:  b.Notice.Visible(),
	}
	if b.Results.Visible() {
		s.Result = b.Results.View()
	}
	return s
}
