package streamcapture

import (
	"sync/atomic"
	"time"

	"trackframe-worker-go/internal/models"
)

// Stats counts capture loop activity for one camera
type Stats struct {
	framesKept    atomic.Int64
	framesDropped atomic.Int64
	reconnects    atomic.Int64
	openFailures  atomic.Int64
	lastFrameNano atomic.Int64
}

func (s *Stats) Snapshot() models.CaptureStats {
	out := models.CaptureStats{
		FramesKept:    s.framesKept.Load(),
		FramesDropped: s.framesDropped.Load(),
		Reconnects:    s.reconnects.Load(),
		OpenFailures:  s.openFailures.Load(),
	}
	if nano := s.lastFrameNano.Load(); nano != 0 {
		last := time.Unix(0, nano).UTC()
		out.LastFrameTime = &last
	}
	return out
}
