// Package channeltest provides an in-memory channel.Channel for tests.
package channeltest

import (
	"sync"

	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
)

// Recorder is a channel.Channel that records every accepted frame synchronously.
type Recorder struct {
	id   string
	info channel.Info

	mu      sync.Mutex
	frames  []channel.Frame
	links   []channel.Channel
	closed  bool
	writes  int
	done    chan struct{}
	failErr error
}

// NewRecorder creates a Recorder with the given ID and attributes
func NewRecorder(id string, info channel.Info) *Recorder {
	return &Recorder{
		id:   id,
		info: info,
		done: make(chan struct{}),
	}
}

// FailWrites makes every subsequent Write return err
func (r *Recorder) FailWrites(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failErr = err
}

// ID returns the recorder ID
func (r *Recorder) ID() string {
	return r.id
}

// Info returns the configured attributes
func (r *Recorder) Info() channel.Info {
	return r.info
}

// Write records frame unless the recorder is closed or failing
func (r *Recorder) Write(frame channel.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.writes++
	if r.closed {
		return channel.ErrClosed
	}
	if r.failErr != nil {
		return r.failErr
	}
	r.frames = append(r.frames, frame)
	return nil
}

// LinkClose records target and closes it when the recorder is closed
func (r *Recorder) LinkClose(target channel.Channel) {
	if target == nil {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = target.Close()
		return
	}
	r.links = append(r.links, target)
	r.mu.Unlock()
}

// Close marks the recorder closed and closes every linked target
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	links := r.links
	r.links = nil
	close(r.done)
	r.mu.Unlock()

	for _, target := range links {
		_ = target.Close()
	}
	return nil
}

// Done is closed by Close
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

// Frames returns a copy of the recorded frames
func (r *Recorder) Frames() []channel.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]channel.Frame{}, r.frames...)
}

// Links returns a copy of the registered close links
func (r *Recorder) Links() []channel.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]channel.Channel{}, r.links...)
}

// Writes returns how many times Write was called, accepted or not
func (r *Recorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// IsClosed reports whether Close was called
func (r *Recorder) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

var _ channel.Channel = (*Recorder)(nil)
