package streamcapture

import (
	"time"

	"trackframe-worker-go/internal/models"
)

// Stream is an open video source
type Stream interface {
	// Read grabs the next frame. False means the stream failed and must be reopened.
	Read() bool
	// Encode downscales the last read frame to maxWidth (aspect kept, no upscaling)
	// and JPEG-encodes it.
	Encode(maxWidth, quality int) (data []byte, width, height int, err error)
	Close() error
}

// Opener opens a Stream for a URL
type Opener interface {
	Open(url string) (Stream, error)
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(url string) (Stream, error)

func (f OpenerFunc) Open(url string) (Stream, error) {
	return f(url)
}

// FrameSink receives encoded frames, e.g. hotbuffer.Ring
type FrameSink interface {
	Append(f models.BufferedFrame)
}

// Clock abstracts time for the capture loop
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the wall clock
var RealClock Clock = realClock{}
