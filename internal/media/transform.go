package media

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gnzdotmx/chapterize/internal/utils"
)

// Default output geometry and burn-in settings for vertical shorts
const (
	DefaultTargetWidth  = 1080
	DefaultTargetHeight = 1920
	DefaultBurnCRF      = 18
	DefaultBurnPreset   = "slow"
	DefaultFontsDir     = "assets/fonts"
)

// EncodeProfile holds the video encoder settings for a re-encode
type EncodeProfile struct {
	Codec  string
	Preset string
	CRF    int // 0 leaves the encoder default
	PixFmt string
}

func (p EncodeProfile) args() []string {
	args := []string{"-c:v", p.Codec}
	if p.Preset != "" {
		args = append(args, "-preset", p.Preset)
	}
	if p.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(p.CRF))
	}
	if p.PixFmt != "" {
		args = append(args, "-pix_fmt", p.PixFmt)
	}
	return args
}

var (
	// DefaultScaleProfile is used when no crop is needed
	DefaultScaleProfile = EncodeProfile{Codec: "libx264", Preset: "veryfast"}
	// DefaultCropProfile is used for crop-then-scale, where artifacts show more
	DefaultCropProfile = EncodeProfile{Codec: "libx264", Preset: "medium", CRF: 18, PixFmt: "yuv420p"}
)

// ResizeOptions sets the target frame size for ResizeToVertical
type ResizeOptions struct {
	Width  int
	Height int
}

// BurnOptions configures BurnSubtitles
type BurnOptions struct {
	CRF      int
	Preset   string
	FontsDir string
}

// Transformer derives new artifacts by running ffmpeg. It holds no state
// between calls, so one Transformer can serve concurrent chapters.
type Transformer struct {
	runner Runner
	prober Prober

	strict       bool
	scaleProfile EncodeProfile
	cropProfile  EncodeProfile
}

// Option configures a Transformer
type Option func(*Transformer)

// WithStrictLineage rejects operations whose input kind does not fit the
// lineage Original -> Subclip -> Cropped -> Final.
func WithStrictLineage() Option {
	return func(t *Transformer) { t.strict = true }
}

// WithScaleProfile overrides the scale-only encoder settings
func WithScaleProfile(p EncodeProfile) Option {
	return func(t *Transformer) { t.scaleProfile = p }
}

// WithCropProfile overrides the crop-then-scale encoder settings
func WithCropProfile(p EncodeProfile) Option {
	return func(t *Transformer) { t.cropProfile = p }
}

// NewTransformer creates a Transformer
func NewTransformer(runner Runner, prober Prober, opts ...Option) *Transformer {
	t := &Transformer{
		runner:       runner,
		prober:       prober,
		scaleProfile: DefaultScaleProfile,
		cropProfile:  DefaultCropProfile,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ExtractSubclip cuts [start, end] seconds out of src with stream copy.
// Cuts land on keyframes. The result keeps src's resolution.
func (t *Transformer) ExtractSubclip(ctx context.Context, src *Artifact, start, end float64, out string) (*Artifact, error) {
	const op = "extract_subclip"
	if src == nil {
		return nil, opError(op, "", ErrArtifactNotFound, nil)
	}
	if start < 0 || start >= end {
		return nil, opError(op, src.Location(), ErrInvalidTimeRange,
			fmt.Errorf("start=%s end=%s", formatSeconds(start), formatSeconds(end)))
	}
	if err := t.checkInput(op, src, KindSubclip); err != nil {
		return nil, err
	}

	args := []string{
		"-y",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", src.Location(),
		"-c", "copy",
		out,
	}
	utils.LogVerbose("Extracting subclip %s-%s from %s", formatSeconds(start), formatSeconds(end), src.Location())
	if err := t.run(ctx, op, out, args); err != nil {
		return nil, err
	}
	return src.derive(out, KindSubclip), nil
}

// MergeAudio muxes the first video stream of video with the first audio
// stream of audio, re-encoding audio to AAC. Other streams are dropped.
func (t *Transformer) MergeAudio(ctx context.Context, video *Artifact, audio, out string) (*Artifact, error) {
	const op = "merge_audio"
	if err := t.checkInput(op, video, KindOriginal); err != nil {
		return nil, err
	}
	if !fileExists(audio) {
		return nil, opError(op, audio, ErrAssetNotFound, nil)
	}

	args := []string{
		"-y",
		"-i", video.Location(),
		"-i", audio,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
		out,
	}
	utils.LogVerbose("Merging audio %s into %s", audio, video.Location())
	if err := t.run(ctx, op, out, args); err != nil {
		return nil, err
	}
	return video.derive(out, KindOriginal), nil
}

// StripAudio copies the video stream of src and drops all audio.
func (t *Transformer) StripAudio(ctx context.Context, src *Artifact, out string) (*Artifact, error) {
	const op = "strip_audio"
	if err := t.checkInput(op, src, KindWithoutAudio); err != nil {
		return nil, err
	}

	args := []string{"-y", "-i", src.Location(), "-map", "0:v:0", "-c:v", "copy", "-an", out}
	if err := t.run(ctx, op, out, args); err != nil {
		return nil, err
	}
	return src.derive(out, KindWithoutAudio), nil
}

// ResizeToVertical brings src to the target size, cropping the centre when
// src is wider than the target ratio. Audio is copied. The result's
// resolution is exactly the target, whichever branch ran.
func (t *Transformer) ResizeToVertical(ctx context.Context, src *Artifact, out string, opts ResizeOptions) (*Artifact, error) {
	const op = "resize_to_vertical"
	if opts.Width == 0 {
		opts.Width = DefaultTargetWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultTargetHeight
	}
	if err := t.checkInput(op, src, KindCropped); err != nil {
		return nil, err
	}

	current, err := src.Resolution(ctx, t.prober)
	if err != nil {
		return nil, err
	}
	target := Resolution{Width: opts.Width, Height: opts.Height}
	plan, err := PlanGeometry(current, target)
	if err != nil {
		return nil, opError(op, src.Location(), ErrInvalidGeometry, err)
	}

	profile := t.scaleProfile
	if plan.Mode == CropThenScale {
		profile = t.cropProfile
	}

	args := []string{"-y", "-i", src.Location(), "-vf", plan.Filter()}
	args = append(args, profile.args()...)
	args = append(args, "-c:a", "copy", out)

	utils.LogVerbose("Resizing %s (%s) to %s via %s", src.Location(), current, target, plan.Mode)
	if err := t.run(ctx, op, out, args); err != nil {
		return nil, err
	}
	return NewArtifactWithResolution(out, KindCropped, target), nil
}

// BurnSubtitles renders an ASS subtitle file into the video pixels. The
// video is always re-encoded with a profile most short-form players accept.
func (t *Transformer) BurnSubtitles(ctx context.Context, src *Artifact, subtitle, out string, opts BurnOptions) (*Artifact, error) {
	const op = "burn_subtitles"
	if opts.CRF == 0 {
		opts.CRF = DefaultBurnCRF
	}
	if opts.Preset == "" {
		opts.Preset = DefaultBurnPreset
	}
	if opts.FontsDir == "" {
		opts.FontsDir = DefaultFontsDir
	}
	if err := t.checkInput(op, src, KindFinal); err != nil {
		return nil, err
	}
	if !fileExists(subtitle) {
		return nil, opError(op, subtitle, ErrAssetNotFound, nil)
	}

	args := []string{
		"-y",
		"-i", src.Location(),
		"-vf", subtitleFilter(subtitle, opts.FontsDir),
		"-c:v", "libx264",
		"-crf", strconv.Itoa(opts.CRF),
		"-preset", opts.Preset,
		"-pix_fmt", "yuv420p",
		"-profile:v", "high",
		"-level", "4.2",
		"-movflags", "+faststart",
		"-c:a", "copy",
		out,
	}
	utils.LogVerbose("Burning subtitles %s into %s", subtitle, src.Location())
	if err := t.run(ctx, op, out, args); err != nil {
		return nil, err
	}
	return src.derive(out, KindFinal), nil
}

// checkInput verifies the primary input exists and, in strict mode, that
// producing next from it is a legal transition.
func (t *Transformer) checkInput(op string, src *Artifact, next Kind) error {
	if src == nil {
		return opError(op, "", ErrArtifactNotFound, nil)
	}
	if t.strict && !CanTransition(src.Kind(), next) {
		return opError(op, src.Location(), ErrIllegalTransition, fmt.Errorf("%s -> %s", src.Kind(), next))
	}
	if !fileExists(src.Location()) {
		return opError(op, src.Location(), ErrArtifactNotFound, nil)
	}
	return nil
}

// run invokes the runner and removes whatever partial output was left
// behind on failure.
func (t *Transformer) run(ctx context.Context, op, out string, args []string) error {
	if err := t.runner.Run(ctx, args); err != nil {
		if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
			utils.LogWarning("Failed to remove partial output %s: %v", out, rmErr)
		}
		return opError(op, out, ErrTranscode, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', -1, 64)
}

// subtitleFilter builds the ass filter; paths are single-quoted so colons
// and commas need no escaping.
func subtitleFilter(subtitle, fontsDir string) string {
	return fmt.Sprintf("ass='%s':fontsdir='%s'", quoteFilterValue(subtitle), quoteFilterValue(fontsDir))
}

func quoteFilterValue(s string) string {
	return strings.ReplaceAll(s, `'`, `'\''`)
}
