package opencv

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"trackframe-worker-go/internal/services/streamcapture"
)

// ffmpegOptions tune the OpenCV FFmpeg backend for low-latency RTSP reads
var ffmpegOptions = map[string]string{
	"rtsp_transport":  "tcp",     // Use TCP for more reliable connection
	"buffer_size":     "2097152", // 2MB buffer - smaller for real-time
	"max_delay":       "500000",  // 0.5s max delay
	"stimeout":        "5000000", // 5s timeout
	"rw_timeout":      "5000000", // 5s read/write timeout
	"fflags":          "nobuffer",
	"flags":           "low_delay",
	"analyzeduration": "500000",
	"probesize":       "2000000",
	"err_detect":      "careful",
}

var configureOnce sync.Once

// configureFFmpegOptions sets OPENCV_FFMPEG_CAPTURE_OPTIONS once per process
func configureFFmpegOptions() {
	configureOnce.Do(func() {
		if existing := os.Getenv("OPENCV_FFMPEG_CAPTURE_OPTIONS"); existing != "" {
			log.Info().Str("ffmpeg_options", existing).Msg("Using FFmpeg capture options from environment")
			return
		}

		keys := make([]string, 0, len(ffmpegOptions))
		for key := range ffmpegOptions {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, key+";"+ffmpegOptions[key])
		}
		opts := strings.Join(parts, "|")
		os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", opts)

		log.Info().Str("ffmpeg_options", opts).Msg("FFmpeg options configured for OpenCV")
	})
}

// Opener opens RTSP/file streams through OpenCV's FFmpeg backend
type Opener struct{}

func NewOpener() *Opener {
	return &Opener{}
}

func (o *Opener) Open(url string) (streamcapture.Stream, error) {
	configureFFmpegOptions()

	capture, err := gocv.OpenVideoCaptureWithAPI(url, gocv.VideoCaptureFFmpeg)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video capture is not opened")
	}

	// Minimal buffer keeps frames close to real time
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	return &stream{capture: capture, frame: gocv.NewMat()}, nil
}

type stream struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

func (s *stream) Read() bool {
	return s.capture.Read(&s.frame) && !s.frame.Empty()
}

func (s *stream) Encode(maxWidth, quality int) ([]byte, int, int, error) {
	return encodeJPEG(s.frame, maxWidth, quality)
}

func (s *stream) Close() error {
	s.frame.Close()
	return s.capture.Close()
}

// encodeJPEG downscales src to maxWidth with area interpolation and encodes it
func encodeJPEG(src gocv.Mat, maxWidth, quality int) ([]byte, int, int, error) {
	img := src
	if maxWidth > 0 && src.Cols() > maxWidth {
		height := int(float64(src.Rows()) * float64(maxWidth) / float64(src.Cols()))
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(src, &resized, image.Pt(maxWidth, height), 0, 0, gocv.InterpolationArea)
		img = resized
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	return bytes.Clone(buf.GetBytes()), img.Cols(), img.Rows(), nil
}

// ExtractFrame decodes the frame at offset into a recorded video file and
// returns it as JPEG.
func ExtractFrame(path string, offset time.Duration, maxWidth, quality int) ([]byte, int, int, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open segment %s: %w", path, err)
	}
	defer capture.Close()

	if offset > 0 {
		capture.Set(gocv.VideoCapturePosMsec, float64(offset.Milliseconds()))
	}

	frame := gocv.NewMat()
	defer frame.Close()
	if !capture.Read(&frame) || frame.Empty() {
		return nil, 0, 0, fmt.Errorf("no frame at %s in %s", offset, path)
	}

	return encodeJPEG(frame, maxWidth, quality)
}
