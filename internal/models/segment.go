package models

import "time"

// Segment is one recorded video file
type Segment struct {
	CameraID  string        `json:"camera_id"`
	Name      string        `json:"name"`
	Path      string        `json:"path"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	SizeBytes int64         `json:"size_bytes"`
}

// EndTime returns the nominal end of the segment
func (s Segment) EndTime() time.Time {
	return s.StartTime.Add(s.Duration)
}

// Covers reports whether t falls in [start, start+duration)
func (s Segment) Covers(t time.Time) bool {
	return !t.Before(s.StartTime) && t.Before(s.EndTime())
}
