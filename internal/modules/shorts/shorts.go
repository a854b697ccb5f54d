// Package shorts turns selected chapters of a source video into vertical,
// subtitled shorts.
package shorts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gnzdotmx/chapterize/internal/chapters"
	"github.com/gnzdotmx/chapterize/internal/config"
	modules "github.com/gnzdotmx/chapterize/internal/mod"
	"github.com/gnzdotmx/chapterize/internal/media"
	"github.com/gnzdotmx/chapterize/internal/subtitles"
	"github.com/gnzdotmx/chapterize/internal/transcript"
	"github.com/gnzdotmx/chapterize/internal/utils"
)

// Failure policies
const (
	OnErrorSkip  = "skip"
	OnErrorAbort = "abort"
)

// workDirName holds per-chapter intermediates under shorts/
const workDirName = ".work"

// Module implements the shorts pipeline
type Module struct {
	runner media.Runner
	prober media.Prober
}

// Params contains the parameters for the shorts pipeline
type Params struct {
	Input      string `json:"input"`      // source video
	Chapters   string `json:"chapters"`   // chapters JSON/YAML
	Transcript string `json:"transcript"` // transcript used for subtitles
	Output     string `json:"output"`     // run directory; shorts land in shorts/
	AudioFile  string `json:"audioFile"`  // optional track merged into the source first

	Width  int `json:"width"`  // default 1080
	Height int `json:"height"` // default 1920

	MinScore    float64 `json:"minScore"`
	MaxShorts   int     `json:"maxShorts"`
	MinDuration float64 `json:"minDuration"`
	MaxDuration float64 `json:"maxDuration"`

	Workers           int    `json:"workers"`  // default from WORKERS
	OnError           string `json:"onError"`  // skip (default) or abort
	CRF               int    `json:"crf"`      // burn-in quality, default 18
	Preset            string `json:"preset"`   // burn-in preset, default slow
	FontsDir          string `json:"fontsDir"` // default from FONTS_DIR
	KeepIntermediates bool   `json:"keepIntermediates"`
	StrictLineage     bool   `json:"strictLineage"`
}

// Short is one produced clip, as recorded in the manifest
type Short struct {
	Index           int      `yaml:"index"`
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description,omitempty"`
	Tags            []string `yaml:"tags,omitempty"`
	Start           float64  `yaml:"start"`
	End             float64  `yaml:"end"`
	EngagementScore float64  `yaml:"engagement_score"`
	File            string   `yaml:"file"`
	Width           int      `yaml:"width"`
	Height          int      `yaml:"height"`
}

// Failure records a chapter that could not be processed
type Failure struct {
	Index    int    `yaml:"index"`
	Title    string `yaml:"title"`
	Op       string `yaml:"op,omitempty"`
	Location string `yaml:"location,omitempty"`
	Error    string `yaml:"error"`
}

// New creates a shorts module backed by ffmpeg and ffprobe
func New() modules.Module {
	binary := ""
	if cfg, err := config.FromEnv(); err == nil {
		binary = cfg.FFmpegPath
	}
	return &Module{
		runner: media.NewFFmpegRunner(binary, true),
		prober: media.NewFFProbe(),
	}
}

// NewWithMedia creates a shorts module with custom media tooling
func NewWithMedia(runner media.Runner, prober media.Prober) modules.Module {
	return &Module{runner: runner, prober: prober}
}

// Name returns the module name
func (m *Module) Name() string {
	return "shorts"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	if err := utils.ValidateInputFile("input", p.Input); err != nil {
		return err
	}
	if err := utils.ValidateInputFile("chapters", p.Chapters); err != nil {
		return err
	}
	if err := utils.ValidateInputFile("transcript", p.Transcript); err != nil {
		return err
	}
	if p.AudioFile != "" {
		if err := utils.ValidateInputFile("audioFile", p.AudioFile); err != nil {
			return err
		}
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}
	if p.Width < 0 || p.Height < 0 {
		return &utils.ValidationError{Field: "width", Message: "width and height must be positive"}
	}
	if p.Workers < 0 {
		return &utils.ValidationError{Field: "workers", Message: "workers must be positive"}
	}
	switch p.OnError {
	case "", OnErrorSkip, OnErrorAbort:
	default:
		return &utils.ValidationError{Field: "onError", Message: fmt.Sprintf("must be %q or %q, got %q", OnErrorSkip, OnErrorAbort, p.OnError)}
	}
	if p.MinDuration > 0 && p.MaxDuration > 0 && p.MinDuration > p.MaxDuration {
		return fmt.Errorf("minDuration (%.0f) cannot be greater than maxDuration (%.0f)", p.MinDuration, p.MaxDuration)
	}
	return nil
}

func (m *Module) applyDefaults(p *Params) {
	if p.Width == 0 {
		p.Width = media.DefaultTargetWidth
	}
	if p.Height == 0 {
		p.Height = media.DefaultTargetHeight
	}
	if p.OnError == "" {
		p.OnError = OnErrorSkip
	}
	if p.Workers == 0 || p.FontsDir == "" {
		cfg, err := config.FromEnv()
		if err != nil {
			utils.LogWarning("Ignoring invalid environment: %v", err)
			cfg = &config.Config{Workers: 1, FontsDir: media.DefaultFontsDir}
		}
		if p.Workers == 0 {
			p.Workers = cfg.Workers
		}
		if p.FontsDir == "" {
			p.FontsDir = cfg.FontsDir
		}
	}
}

type job struct {
	index   int
	chapter chapters.Chapter
}

type outcome struct {
	index int
	short *Short
	err   error
}

// Execute cuts, reframes and subtitles every selected chapter
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}
	m.applyDefaults(&p)
	started := time.Now()

	doc, err := chapters.Load(p.Chapters)
	if err != nil {
		return modules.ModuleResult{}, err
	}
	selected := chapters.Select(chapters.Valid(doc.Chapters), chapters.SelectOptions{
		MinScore:    p.MinScore,
		MaxCount:    p.MaxShorts,
		MinDuration: p.MinDuration,
		MaxDuration: p.MaxDuration,
	})
	if len(selected) == 0 {
		return modules.ModuleResult{}, fmt.Errorf("no chapters in %s pass the selection", p.Chapters)
	}

	tx, err := transcript.Load(p.Transcript)
	if err != nil {
		return modules.ModuleResult{}, err
	}

	shortsDir, err := config.Paths{Root: p.Output}.ShortsDir()
	if err != nil {
		return modules.ModuleResult{}, err
	}
	workRoot := filepath.Join(shortsDir, workDirName)

	var opts []media.Option
	if p.StrictLineage {
		opts = append(opts, media.WithStrictLineage())
	}
	tf := media.NewTransformer(m.runner, m.prober, opts...)

	source := media.NewArtifact(p.Input, media.KindOriginal)
	if p.AudioFile != "" {
		merged := filepath.Join(workRoot, source.Name()+"_with_audio.mp4")
		if _, err := utils.EnsureDir(workRoot); err != nil {
			return modules.ModuleResult{}, err
		}
		utils.LogInfo("Merging audio %s into %s", p.AudioFile, p.Input)
		source, err = tf.MergeAudio(ctx, source, p.AudioFile, merged)
		if err != nil {
			return modules.ModuleResult{}, err
		}
	}

	// Probe once up front so workers share the cached resolution.
	res, err := source.Resolution(ctx, m.prober)
	if err != nil {
		return modules.ModuleResult{}, err
	}
	utils.LogInfo("Processing %d chapters of %s (%s) with %d worker(s)", len(selected), source.Location(), res, p.Workers)

	produced, failures := m.run(ctx, tf, source, tx, selected, shortsDir, workRoot, p)

	if !p.KeepIntermediates {
		if err := os.RemoveAll(workRoot); err != nil {
			utils.LogWarning("Failed to remove intermediates %s: %v", workRoot, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("shorts cancelled after %d/%d chapters: %w", len(produced), len(selected), err)
	}

	manifestPath := filepath.Join(shortsDir, ManifestName)
	if err := WriteManifest(manifestPath, &Manifest{Source: p.Input, Shorts: produced, Failures: failures}); err != nil {
		return modules.ModuleResult{}, err
	}

	stats := map[string]interface{}{
		"selected": len(selected),
		"produced": len(produced),
		"failed":   len(failures),
		"workers":  p.Workers,
		"elapsed":  time.Since(started).Round(time.Millisecond).String(),
	}

	if len(failures) > 0 && p.OnError == OnErrorAbort {
		f := failures[0]
		return modules.ModuleResult{Statistics: stats}, fmt.Errorf("chapter %d (%s) failed: %s", f.Index, f.Title, f.Error)
	}
	if len(produced) == 0 {
		return modules.ModuleResult{Statistics: stats}, fmt.Errorf("all %d chapters failed", len(selected))
	}

	utils.LogSuccess("Produced %d/%d shorts in %s", len(produced), len(selected), shortsDir)
	return modules.ModuleResult{
		Outputs: map[string]string{
			"shorts":   shortsDir,
			"manifest": manifestPath,
		},
		Metadata: map[string]interface{}{
			"source":     p.Input,
			"resolution": res.String(),
			"target":     fmt.Sprintf("%dx%d", p.Width, p.Height),
		},
		Statistics: stats,
	}, nil
}

// run feeds the chapters to a bounded pool of workers. Within a chapter the
// operations are sequential; chapters are independent. With the abort
// policy the first failure cancels the chapters still running.
func (m *Module) run(ctx context.Context, tf *media.Transformer, source *media.Artifact, tx *transcript.Transcript,
	selected []chapters.Chapter, shortsDir, workRoot string, p Params) ([]Short, []Failure) {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(selected) {
		workers = len(selected)
	}

	jobs := make(chan job)
	results := make(chan outcome, len(selected))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				s, err := m.processChapter(ctx, tf, source, tx, j, shortsDir, workRoot, p)
				if err != nil && p.OnError == OnErrorAbort {
					cancel()
				}
				results <- outcome{index: j.index, short: s, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, ch := range selected {
			select {
			case jobs <- job{index: i + 1, chapter: ch}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var produced []Short
	var failures, cancelled []Failure
	for r := range results {
		if r.err == nil {
			produced = append(produced, *r.short)
			continue
		}
		ch := selected[r.index-1]
		f := Failure{Index: r.index, Title: ch.Title, Error: r.err.Error()}
		var opErr *media.OpError
		if errors.As(r.err, &opErr) {
			f.Op, f.Location = opErr.Op, opErr.Location
		}
		if errors.Is(r.err, context.Canceled) {
			utils.LogVerbose("Chapter %d (%s) cancelled", r.index, ch.Title)
			cancelled = append(cancelled, f)
			continue
		}
		utils.LogError("Chapter %d (%s) failed: %v", r.index, ch.Title, r.err)
		failures = append(failures, f)
	}

	byIndex := func(fs []Failure) {
		sort.Slice(fs, func(i, j int) bool { return fs[i].Index < fs[j].Index })
	}
	sort.Slice(produced, func(i, j int) bool { return produced[i].Index < produced[j].Index })
	byIndex(failures)
	byIndex(cancelled)
	// chapters cancelled by an abort come after the failure that caused it
	return produced, append(failures, cancelled...)
}

// processChapter runs subclip, resize, subtitle and burn for one chapter.
func (m *Module) processChapter(ctx context.Context, tf *media.Transformer, source *media.Artifact, tx *transcript.Transcript,
	j job, shortsDir, workRoot string, p Params) (*Short, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := j.chapter
	name := fmt.Sprintf("%02d_%s", j.index, utils.SanitizeFilename(ch.Title))
	workDir, err := utils.EnsureDir(filepath.Join(workRoot, name))
	if err != nil {
		return nil, err
	}
	utils.LogInfo("[%d] %s (%.2f-%.2f, score %.2f)", j.index, ch.Title, ch.Start, ch.End, ch.EngagementScore)

	clip, err := tf.ExtractSubclip(ctx, source, ch.Start, ch.End, filepath.Join(workDir, "subclip.mp4"))
	if err != nil {
		return nil, err
	}

	vertical, err := tf.ResizeToVertical(ctx, clip, filepath.Join(workDir, "vertical.mp4"), media.ResizeOptions{
		Width:  p.Width,
		Height: p.Height,
	})
	if err != nil {
		return nil, err
	}

	subPath := filepath.Join(workDir, "subtitles.ass")
	doc := subtitles.FromSegments(tx.Window(ch.Start, ch.End), subtitles.Options{
		Width:  p.Width,
		Height: p.Height,
	})
	if err := subtitles.WriteFile(subPath, doc); err != nil {
		return nil, err
	}

	final, err := tf.BurnSubtitles(ctx, vertical, subPath, filepath.Join(shortsDir, name+".mp4"), media.BurnOptions{
		CRF:      p.CRF,
		Preset:   p.Preset,
		FontsDir: p.FontsDir,
	})
	if err != nil {
		return nil, err
	}

	res, _ := final.CachedResolution()
	utils.LogSuccess("[%d] %s", j.index, final.Location())
	return &Short{
		Index:           j.index,
		Title:           ch.Title,
		Description:     ch.Description,
		Tags:            ch.Tags,
		Start:           ch.Start,
		End:             ch.End,
		EngagementScore: ch.EngagementScore,
		File:            final.Location(),
		Width:           res.Width,
		Height:          res.Height,
	}, nil
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{Name: "input", Description: "Source video", Patterns: []string{".mp4", ".mov", ".mkv", ".webm"}, Type: string(modules.InputTypeFile)},
			{Name: "chapters", Description: "Chapters file", Patterns: []string{".json", ".yaml", ".yml"}, Type: string(modules.InputTypeFile)},
			{Name: "transcript", Description: "Transcript used for subtitles", Patterns: []string{".json", ".srt"}, Type: string(modules.InputTypeFile)},
			{Name: "output", Description: "Run directory", Type: string(modules.InputTypeDirectory)},
		},
		OptionalInputs: []modules.ModuleInput{
			{Name: "audioFile", Description: "Audio track merged into the source before cutting", Patterns: []string{".wav", ".mp3", ".m4a", ".aac"}, Type: string(modules.InputTypeFile)},
			{Name: "width", Description: "Target width (default: 1080)", Type: string(modules.InputTypeData)},
			{Name: "height", Description: "Target height (default: 1920)", Type: string(modules.InputTypeData)},
			{Name: "minScore", Description: "Minimum engagement score", Type: string(modules.InputTypeData)},
			{Name: "maxShorts", Description: "Maximum number of shorts", Type: string(modules.InputTypeData)},
			{Name: "minDuration", Description: "Minimum chapter length in seconds", Type: string(modules.InputTypeData)},
			{Name: "maxDuration", Description: "Maximum chapter length in seconds", Type: string(modules.InputTypeData)},
			{Name: "workers", Description: "Chapters processed in parallel", Type: string(modules.InputTypeData)},
			{Name: "onError", Description: "skip or abort", Type: string(modules.InputTypeData)},
			{Name: "crf", Description: "Burn-in quality (default: 18)", Type: string(modules.InputTypeData)},
			{Name: "preset", Description: "Burn-in preset (default: slow)", Type: string(modules.InputTypeData)},
			{Name: "fontsDir", Description: "Fonts directory for subtitles", Type: string(modules.InputTypeDirectory)},
			{Name: "keepIntermediates", Description: "Keep subclip and vertical files", Type: string(modules.InputTypeData)},
			{Name: "strictLineage", Description: "Reject out-of-order transforms", Type: string(modules.InputTypeData)},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{Name: "shorts", Description: "Directory of final shorts", Patterns: []string{".mp4"}, Type: string(modules.OutputTypeDirectory)},
			{Name: "manifest", Description: "Produced shorts and failures", Patterns: []string{".yaml"}, Type: string(modules.OutputTypeFile)},
		},
	}
}
