package recorder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"trackframe-worker-go/internal/models"
)

const (
	// SegmentPattern is the ffmpeg strftime output name
	SegmentPattern = "D%Y-%m-%d-T%H-%M-%S.mp4"
	// segmentLayout is SegmentPattern without its extension as a Go time layout
	segmentLayout = "D2006-01-02-T15-04-05"
	segmentExt    = ".mp4"
)

// ParseSegmentName returns the UTC start time encoded in a segment file name
func ParseSegmentName(name string) (time.Time, bool) {
	stem, ok := strings.CutSuffix(name, segmentExt)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(segmentLayout, stem, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SegmentName is the file name ffmpeg gives a segment starting at t
func SegmentName(t time.Time) string {
	return t.UTC().Format(segmentLayout) + segmentExt
}

// Segments lists a camera's recorded segments, oldest first. Files that do
// not follow the naming pattern are ignored. A camera without recordings
// has no segments.
func (rs *Service) Segments(cameraID string) ([]models.Segment, error) {
	dir := rs.outputDir(cameraID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list segments: %w", err)
	}

	duration := rs.cfg.SegmentDuration()
	segments := make([]models.Segment, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		start, ok := ParseSegmentName(entry.Name())
		if !ok {
			continue
		}
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		segments = append(segments, models.Segment{
			CameraID:  cameraID,
			Name:      entry.Name(),
			Path:      filepath.Join(dir, entry.Name()),
			StartTime: start,
			Duration:  duration,
			SizeBytes: size,
		})
	}

	sort.Slice(segments, func(i, j int) bool {
		return segments[i].StartTime.Before(segments[j].StartTime)
	})

	// A segment ends no later than the next one starts
	for i := 0; i+1 < len(segments); i++ {
		if gap := segments[i+1].StartTime.Sub(segments[i].StartTime); gap < segments[i].Duration {
			segments[i].Duration = gap
		}
	}
	return segments, nil
}

// FindSegment returns the segment whose time range contains t
func (rs *Service) FindSegment(cameraID string, t time.Time) (models.Segment, bool, error) {
	segments, err := rs.Segments(cameraID)
	if err != nil {
		return models.Segment{}, false, err
	}

	idx := sort.Search(len(segments), func(i int) bool {
		return segments[i].StartTime.After(t)
	})
	// idx is the first segment starting after t; the candidate precedes it
	if idx == 0 {
		return models.Segment{}, false, nil
	}
	seg := segments[idx-1]
	if !seg.Covers(t) {
		return models.Segment{}, false, nil
	}
	return seg, true, nil
}
