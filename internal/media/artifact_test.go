package media

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber returns res (or err) and counts calls
type fakeProber struct {
	mu    sync.Mutex
	res   Resolution
	err   error
	calls int32
}

func (p *fakeProber) Probe(ctx context.Context, location string) (Resolution, error) {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.res, p.err
}

func (p *fakeProber) set(res Resolution, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.res, p.err = res, err
}

func TestArtifact_ResolutionIsSticky(t *testing.T) {
	p := &fakeProber{res: Resolution{1920, 1080}}
	a := NewArtifact("in.mp4", KindOriginal)

	_, ok := a.CachedResolution()
	assert.False(t, ok)

	res, err := a.Resolution(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Resolution{1920, 1080}, res)

	p.set(Resolution{640, 480}, nil)
	res, err = a.Resolution(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Resolution{1920, 1080}, res, "cache must not refresh")
	assert.EqualValues(t, 1, atomic.LoadInt32(&p.calls))
}

func TestArtifact_FailedProbeIsNotCached(t *testing.T) {
	p := &fakeProber{err: opError("probe", "in.mp4", ErrProbe, errors.New("bad file"))}
	a := NewArtifact("in.mp4", KindOriginal)

	_, err := a.Resolution(context.Background(), p)
	assert.ErrorIs(t, err, ErrProbe)

	p.set(Resolution{1280, 720}, nil)
	res, err := a.Resolution(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Resolution{1280, 720}, res)
	assert.EqualValues(t, 2, atomic.LoadInt32(&p.calls))
}

func TestArtifact_ConcurrentProbeOnce(t *testing.T) {
	p := &fakeProber{res: Resolution{3840, 2160}}
	a := NewArtifact("in.mp4", KindOriginal)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := a.Resolution(context.Background(), p)
			assert.NoError(t, err)
			assert.Equal(t, Resolution{3840, 2160}, res)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&p.calls))
}

func TestNewArtifactWithResolution(t *testing.T) {
	a := NewArtifactWithResolution("x.mp4", KindCropped, Resolution{1080, 1920})
	res, ok := a.CachedResolution()
	assert.True(t, ok)
	assert.Equal(t, Resolution{1080, 1920}, res)

	p := &fakeProber{res: Resolution{1, 1}}
	got, err := a.Resolution(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, res, got)
	assert.EqualValues(t, 0, atomic.LoadInt32(&p.calls))

	b := NewArtifactWithResolution("y.mp4", KindCropped, Resolution{0, 1920})
	_, ok = b.CachedResolution()
	assert.False(t, ok, "invalid resolution is not cached")
}

func TestArtifact_Derive(t *testing.T) {
	parent := NewArtifactWithResolution("in.mp4", KindOriginal, Resolution{1920, 1080})
	child := parent.derive("clip.mp4", KindSubclip)
	assert.Equal(t, KindSubclip, child.Kind())
	assert.Equal(t, "clip.mp4", child.Location())
	res, ok := child.CachedResolution()
	assert.True(t, ok)
	assert.Equal(t, Resolution{1920, 1080}, res)

	bare := NewArtifact("in.mp4", KindOriginal).derive("c.mp4", KindSubclip)
	_, ok = bare.CachedResolution()
	assert.False(t, ok)
}

func TestArtifact_Name(t *testing.T) {
	tests := map[string]string{
		"/data/videos/abc123.mp4":     "abc123",
		"shorts/01_intro.final.mp4":   "01_intro.final",
		"noext":                       "noext",
		"/tmp/dir.with.dots/clip.mkv": "clip",
	}
	for loc, want := range tests {
		assert.Equal(t, want, NewArtifact(loc, KindOriginal).Name(), loc)
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "original", KindOriginal.String())
	assert.Equal(t, "without_audio", KindWithoutAudio.String())
	assert.Equal(t, "cropped", KindCropped.String())
	assert.Equal(t, "subclip", KindSubclip.String())
	assert.Equal(t, "final", KindFinal.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestArtifact_String(t *testing.T) {
	assert.Equal(t, "a.mp4[original]", NewArtifact("a.mp4", KindOriginal).String())
	assert.Equal(t, "a.mp4[final 1080x1920]", NewArtifactWithResolution("a.mp4", KindFinal, Resolution{1080, 1920}).String())
}
