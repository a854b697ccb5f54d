// Package media tracks video artifacts through the shorts pipeline and runs
// the ffmpeg transformations that derive one artifact from another.
package media

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Kind tags an artifact's place in the derivation lineage
type Kind int

const (
	KindOriginal Kind = iota
	KindWithoutAudio
	KindCropped
	KindSubclip
	KindFinal
)

func (k Kind) String() string {
	switch k {
	case KindOriginal:
		return "original"
	case KindWithoutAudio:
		return "without_audio"
	case KindCropped:
		return "cropped"
	case KindSubclip:
		return "subclip"
	case KindFinal:
		return "final"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Resolution is a frame size in pixels
type Resolution struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Valid reports whether both dimensions are positive
func (r Resolution) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Artifact is a video file tracked by the pipeline. It only references the
// file at Location; it does not own the bytes.
//
// The resolution cache is filled once, either at construction or on the
// first successful probe, and is never refreshed afterwards. Callers must
// not rewrite a location in place after it has been probed.
type Artifact struct {
	location string
	kind     Kind

	mu  sync.Mutex
	res *Resolution

	nameOnce sync.Once
	name     string
}

// NewArtifact returns an artifact with no cached resolution. The file does
// not need to exist yet.
func NewArtifact(location string, kind Kind) *Artifact {
	return &Artifact{location: location, kind: kind}
}

// NewArtifactWithResolution returns an artifact whose resolution is already
// known, e.g. inherited from its parent.
func NewArtifactWithResolution(location string, kind Kind, res Resolution) *Artifact {
	a := &Artifact{location: location, kind: kind}
	if res.Valid() {
		a.res = &res
	}
	return a
}

// derive builds a child artifact inheriting a's cached resolution, if any.
func (a *Artifact) derive(location string, kind Kind) *Artifact {
	if res, ok := a.CachedResolution(); ok {
		return NewArtifactWithResolution(location, kind, res)
	}
	return NewArtifact(location, kind)
}

// Location returns the path of the backing file
func (a *Artifact) Location() string { return a.location }

// Kind returns the lineage tag
func (a *Artifact) Kind() Kind { return a.kind }

// Name returns the base name of the location without its extension.
func (a *Artifact) Name() string {
	a.nameOnce.Do(func() {
		base := filepath.Base(a.location)
		a.name = strings.TrimSuffix(base, filepath.Ext(base))
	})
	return a.name
}

// CachedResolution returns the cached resolution without probing.
func (a *Artifact) CachedResolution() (Resolution, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.res == nil {
		return Resolution{}, false
	}
	return *a.res, true
}

// Resolution returns the cached resolution, probing the file with p on
// first use. A failed probe leaves the cache empty.
func (a *Artifact) Resolution(ctx context.Context, p Prober) (Resolution, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.res != nil {
		return *a.res, nil
	}
	res, err := p.Probe(ctx, a.location)
	if err != nil {
		return Resolution{}, err
	}
	a.res = &res
	return res, nil
}

func (a *Artifact) String() string {
	if res, ok := a.CachedResolution(); ok {
		return fmt.Sprintf("%s[%s %s]", a.location, a.kind, res)
	}
	return fmt.Sprintf("%s[%s]", a.location, a.kind)
}
