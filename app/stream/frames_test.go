package stream

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

type scriptedReader struct {
	frames [][]byte
	err    error
}

func (s *scriptedReader) NextFrame() ([]byte, error) {
	if len(s.frames) == 0 {
		return nil, s.err
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func TestPumpKeepsLatestFrame(t *testing.T) {
	f := NewFrames()
	r := &scriptedReader{
		frames: [][]byte{[]byte("one"), {}, []byte("two")},
		err:    io.ErrUnexpectedEOF,
	}

	err := f.Pump(r)

	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, []byte("two"), f.GetFrame())

	f.Reset()
	assert.Nil(t, f.GetFrame())
}
