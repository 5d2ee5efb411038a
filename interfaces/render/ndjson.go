package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	domainservices "github.com/santiagotion/sentinel-sub001/domain/services"
)

// FrameEncoder writes frames as newline-delimited JSON. It is safe for
// concurrent use, so one encoder can sink several handles.
type FrameEncoder struct {
	mu    sync.Mutex
	enc   *json.Encoder
	every int
	seen  int
	count int
	err   error
}

// NewFrameEncoder writes every n-th frame to w; n < 1 means every frame
func NewFrameEncoder(w io.Writer, every int) *FrameEncoder {
	if every < 1 {
		every = 1
	}
	return &FrameEncoder{enc: json.NewEncoder(w), every: every}
}

// Encode writes frame if it falls on the sampling interval
func (e *FrameEncoder) Encode(frame domainservices.Frame) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err != nil {
		return e.err
	}
	e.seen++
	if (e.seen-1)%e.every != 0 {
		return nil
	}
	if err := e.enc.Encode(frame); err != nil {
		e.err = fmt.Errorf("failed to encode frame %d: %w", frame.Tick, err)
		return e.err
	}
	e.count++
	return nil
}

// Force writes frame regardless of sampling, used for the final frame
func (e *FrameEncoder) Force(frame domainservices.Frame) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err != nil {
		return e.err
	}
	if err := e.enc.Encode(frame); err != nil {
		e.err = fmt.Errorf("failed to encode frame %d: %w", frame.Tick, err)
		return e.err
	}
	e.count++
	return nil
}

// Sink adapts the encoder to a frame callback. Write errors are kept and
// reported by Err.
func (e *FrameEncoder) Sink() func(domainservices.Frame) {
	return func(frame domainservices.Frame) {
		_ = e.Encode(frame)
	}
}

// Count returns how many frames were written
func (e *FrameEncoder) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Err returns the first write error
func (e *FrameEncoder) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// WriteProjection writes a timeline projection as indented JSON
func WriteProjection(w io.Writer, projection *domainservices.TimelineProjection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(projection); err != nil {
		return fmt.Errorf("failed to encode timeline projection: %w", err)
	}
	return nil
}
