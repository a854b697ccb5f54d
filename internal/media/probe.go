package media

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Prober reads stream metadata from a media file
type Prober interface {
	Probe(ctx context.Context, location string) (Resolution, error)
}

// probeFile allows us to mock ffprobe in tests
var probeFile = ffmpeg.ProbeWithTimeout

// FFProbe resolves frame sizes with ffprobe
type FFProbe struct{}

// NewFFProbe creates a new ffprobe-backed prober
func NewFFProbe() *FFProbe {
	return &FFProbe{}
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

// Probe returns the resolution of the first video stream in location.
func (p *FFProbe) Probe(ctx context.Context, location string) (Resolution, error) {
	if err := ctx.Err(); err != nil {
		return Resolution{}, opError("probe", location, ErrProbe, err)
	}

	var timeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	out, err := probeFile(location, timeout, ffmpeg.KwArgs{
		"v":              "error",
		"select_streams": "v:0",
	})
	if err != nil {
		return Resolution{}, opError("probe", location, ErrProbe, err)
	}

	res, err := parseProbeOutput([]byte(out))
	if err != nil {
		return Resolution{}, opError("probe", location, ErrProbe, err)
	}
	return res, nil
}

// parseProbeOutput picks the first video stream of an ffprobe JSON document.
func parseProbeOutput(data []byte) (Resolution, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Resolution{}, errors.WithStack(err)
	}

	for _, s := range out.Streams {
		// select_streams already filters, but codec_type may be absent on
		// some builds; fall back to the first stream that has a frame size
		if s.CodecType != "" && s.CodecType != "video" {
			continue
		}
		res := Resolution{Width: s.Width, Height: s.Height}
		if !res.Valid() {
			return Resolution{}, errors.Errorf("video stream has invalid size %s", res)
		}
		return res, nil
	}
	return Resolution{}, errors.New("no video stream found")
}
