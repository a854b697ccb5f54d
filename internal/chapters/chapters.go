// Package chapters holds the chapter model produced by the LLM step and
// consumed by the shorts pipeline.
package chapters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gnzdotmx/chapterize/internal/utils"
)

// Chapter is a contiguous time range of the source video proposed as a
// short. Times are seconds from the start of the source.
type Chapter struct {
	Title           string   `json:"title" yaml:"title"`
	Start           float64  `json:"start" yaml:"start"`
	End             float64  `json:"end" yaml:"end"`
	EngagementScore float64  `json:"engagement_score" yaml:"engagement_score"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags            []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Result is the document written to chapters/<transcript stem>.json
type Result struct {
	Source   string    `json:"source,omitempty" yaml:"source,omitempty"`
	Chapters []Chapter `json:"chapters" yaml:"chapters"`
}

// Duration returns End - Start
func (c Chapter) Duration() float64 {
	return c.End - c.Start
}

// Validate checks 0 <= start < end and a score within [0, 1]
func (c Chapter) Validate() error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return &utils.ValidationError{Field: "title", Message: "chapter title is empty"}
	case c.Start < 0:
		return &utils.ValidationError{Field: "start", Message: fmt.Sprintf("negative start %.2f", c.Start)}
	case c.Start >= c.End:
		return &utils.ValidationError{Field: "end", Message: fmt.Sprintf("end %.2f is not after start %.2f", c.End, c.Start)}
	case c.EngagementScore < 0 || c.EngagementScore > 1:
		return &utils.ValidationError{Field: "engagement_score", Message: fmt.Sprintf("score %.2f outside [0,1]", c.EngagementScore)}
	}
	return nil
}

// Valid returns the chapters that pass Validate, logging the rest
func Valid(chs []Chapter) []Chapter {
	out := make([]Chapter, 0, len(chs))
	for i, c := range chs {
		if err := c.Validate(); err != nil {
			utils.LogWarning("Skipping chapter %d (%q): %v", i+1, c.Title, err)
			continue
		}
		out = append(out, c)
	}
	return out
}

// SelectOptions filters and ranks chapters. Zero values disable a bound.
type SelectOptions struct {
	MinScore    float64
	MaxCount    int
	MinDuration float64
	MaxDuration float64
}

// Select returns the chapters meeting opts, best score first. Equal scores
// keep source order by start time. The input slice is not modified.
func Select(chs []Chapter, opts SelectOptions) []Chapter {
	picked := make([]Chapter, 0, len(chs))
	for _, c := range chs {
		if c.EngagementScore < opts.MinScore {
			continue
		}
		if opts.MinDuration > 0 && c.Duration() < opts.MinDuration {
			continue
		}
		if opts.MaxDuration > 0 && c.Duration() > opts.MaxDuration {
			continue
		}
		picked = append(picked, c)
	}

	sort.SliceStable(picked, func(i, j int) bool {
		if picked[i].EngagementScore != picked[j].EngagementScore {
			return picked[i].EngagementScore > picked[j].EngagementScore
		}
		return picked[i].Start < picked[j].Start
	})

	if opts.MaxCount > 0 && len(picked) > opts.MaxCount {
		picked = picked[:opts.MaxCount]
	}
	return picked
}
