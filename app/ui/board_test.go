package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"detectconsole/models"
)

func TestNewBoardInitialState(t *testing.T) {
	b := NewBoard()
	s := b.Snapshot()

	assert.False(t, s.Submit.Disabled)
	assert.False(t, s.Start.Disabled)
	assert.True(t, s.Stop.Disabled)
	assert.False(t, s.FeedVisible)
	assert.True(t, s.NoticeVisible)
	assert.Nil(t, s.Result)
}

func TestButtonBusyRestoresLabel(t *testing.T) {
	b := NewButton("Detect Objects")

	b.SetBusy(true)
	assert.Equal(t, BusyLabel, b.Label())
	assert.True(t, b.Busy())

	b.SetBusy(false)
	assert.Equal(t, "Detect Objects", b.Label())
}

func TestHiddenResultsAreNotSnapshotted(t *testing.T) {
	b := NewBoard()
	b.Results.Show(models.ResultView{ObjectCount: "3"})
	assert.Equal(t, "3", b.Snapshot().Result.ObjectCount)

	b.Results.Hide()
	assert.Nil(t, b.Snapshot().Result)
}
