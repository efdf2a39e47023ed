// Package ui holds the in-memory page the controllers render into. Elements
// are safe to read from any goroutine; the controllers write to them from
// the event loop only.
package ui

import (
	"sync"

	"detectconsole/models"
)

const BusyLabel = "Processing..."

type Button struct {
	mu       sync.RWMutex
	label    string
	idle     string
	disabled bool
	busy     bool
}

func NewButton(label string) *Button {
	return &Button{label: label, idle: label}
}

func (b *Button) SetDisabled(disabled bool) {
	b.mu.Lock()
	b.disabled = disabled
	b.mu.Unlock()
}

// SetBusy swaps the label for the busy indicator and back.
func (b *Button) SetBusy(busy bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.busy = busy
	if busy {
		b.label = BusyLabel
		return
	}
	b.label = b.idle
}

func (b *Button) Disabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.disabled
}

func (b *Button) Busy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.busy
}

func (b *Button) Label() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.label
}

type Message struct {
	mu      sync.RWMutex
	text    string
	visible bool
}

func (m *Message) Show(text string) {
	m.mu.Lock()
	m.text, m.visible = text, true
	m.mu.Unlock()
}

func (m *Message) Hide() {
	m.mu.Lock()
	m.visible = false
	m.mu.Unlock()
}

func (m *Message) Text() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.text
}

func (m *Message) Visible() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.visible
}

// Results is the region that shows the most recent detection.
type Results struct {
	mu      sync.RWMutex
	view    *models.ResultView
	visible bool
}

func (r *Results) Show(view models.ResultView) {
	r.mu.Lock()
	r.view, r.visible = &view, true
	r.mu.Unlock()
}

func (r *Results) Hide() {
	r.mu.Lock()
	r.visible = false
	r.mu.Unlock()
}

func (r *Results) View() *models.ResultView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.view == nil {
		return nil
	}
	v := *r.view
	return &v
}

func (r *Results) Visible() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.visible
}

// Image is a live-updating image element pointed at a stream URL.
type Image struct {
	mu  sync.RWMutex
	src string
}

func (i *Image) SetSource(src string) {
	i.mu.Lock()
	i.src = src
	i.mu.Unlock()
}

func (i *Image) Source() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.src
}

type Panel struct {
	mu      sync.RWMutex
	visible bool
}

func NewPanel(visible bool) *Panel {
	return &Panel{visible: visible}
}

func (p *Panel) SetVisible(visible bool) {
	p.mu.Lock()
	p.visible = visible
	p.mu.Unlock()
}

func (p *Panel) Visible() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.visible
}
