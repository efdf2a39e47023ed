// Package event runs UI callbacks one at a time on a dedicated goroutine, so
// state owned by the controllers is never touched concurrently.
package event

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("event loop closed")

type Loop struct {
	events chan func()
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func NewLoop() *Loop {
	l := &Loop{
		events: make(chan func(), 64),
		done:   make(chan struct{}),
	}

	l.wg.Add(1)
	go l.run()

	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case fn := <-l.events:
			fn()
		}
	}
}

// Post queues fn without waiting for it to run.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}

	select {
	case <-l.done:
		return ErrClosed
	case l.events <- fn:
		return nil
	}
}

// Do runs fn on the loop and waits until it has returned. It must not be
// called from inside a loop callback.
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// once run has returned, fn either finished or will never run
		l.wg.Wait()
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

func (l *Loop) Close() {
	l.once.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}
