package stream

// FrameReader yields whole JPEG frames, one per call.
type FrameReader interface {
	NextFrame() ([]byte, error)
}

// Frames holds the most recent frame of the live preview.
type Frames struct {
	frame []byte
	lock  chan struct{}
}

func NewFrames() *Frames {
	return &Frames{
		lock: make(chan struct{}, 1),
	}
}

// Pump copies frames from r until it fails, then returns the error.
func (f *Frames) Pump(r FrameReader) error {
	for {
		frame, err := r.NextFrame()
		if err != nil {
			return err
		}

		if len(frame) == 0 {
			continue
		}

		f.Put(frame)
	}
}

func (f *Frames) Put(frame []byte) {
	f.Lock()
	f.frame = frame
	f.Unlock()
}

func (f *Frames) GetFrame() []byte {
	f.Lock()
	b := f.frame
	f.Unlock()
	return b
}

func (f *Frames) Reset() {
	f.Put(nil)
}

func (f *Frames) Lock() {
	f.lock <- struct{}{}
}

func (f *Frames) Unlock() {
	<-f.lock
}
