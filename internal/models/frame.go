package models

import "time"

// BufferedFrame is one encoded frame held by the hot buffer
type BufferedFrame struct {
	Timestamp    time.Time
	EncodedBytes []byte // JPEG
	Width        int
	Height       int
}

// Size returns the number of encoded bytes
func (f BufferedFrame) Size() int64 {
	return int64(len(f.EncodedBytes))
}

// FrameInfo is the JSON view of a buffered frame without its bytes
type FrameInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeBytes int64     `json:"size_bytes"`
}

// Info returns the frame metadata
func (f BufferedFrame) Info() FrameInfo {
	return FrameInfo{
		Timestamp: f.Timestamp,
		Width:     f.Width,
		Height:    f.Height,
		SizeBytes: f.Size(),
	}
}
