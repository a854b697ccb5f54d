package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gnzdotmx/chapterize/internal/modules/shorts"
	youtubesvc "github.com/gnzdotmx/chapterize/internal/services/youtube"
	"github.com/gnzdotmx/chapterize/internal/services/youtube/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	youtubeapi "google.golang.org/api/youtube/v3"
)

var fixedNow = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

type fixture struct {
	dir         string
	manifest    string
	credentials string
	output      string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:         dir,
		manifest:    filepath.Join(dir, "run", "shorts", shorts.ManifestName),
		credentials: filepath.Join(dir, "client_secret.json"),
		output:      filepath.Join(dir, "run"),
	}
	require.NoError(t, os.WriteFile(f.credentials, []byte(`{"installed":{}}`), 0644))
	require.NoError(t, shorts.WriteManifest(f.manifest, &shorts.Manifest{
		Source: "talk.mp4",
		Shorts: []shorts.Short{
			{Index: 1, Title: "Intro", File: filepath.Join(dir, "01_Intro.mp4"), Tags: []string{"intro"}},
			{Index: 2, Title: "Twist", File: filepath.Join(dir, "02_Twist.mp4"), Description: "The turn"},
		},
	}))
	return f
}

func newModule(svc youtubesvc.YouTubeService) *Module {
	m := NewWithService(svc).(*Module)
	m.now = func() time.Time { return fixedNow }
	return m
}

func TestModule_Name(t *testing.T) {
	assert.Equal(t, "upload", New().Name())
}

func TestModule_Validate(t *testing.T) {
	f := newFixture(t)
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	base := func(extra map[string]interface{}) map[string]interface{} {
		p := map[string]interface{}{
			"input":       f.manifest,
			"output":      f.output,
			"credentials": f.credentials,
		}
		for k, v := range extra {
			p[k] = v
		}
		return p
	}

	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{name: "valid parameters", params: base(nil)},
		{name: "valid schedule", params: base(map[string]interface{}{"scheduleTime": "18:00", "startDate": "2025-04-01"})},
		{name: "missing manifest", params: base(map[string]interface{}{"input": filepath.Join(f.dir, "nope.yaml")}), wantErr: true},
		{name: "missing credentials", params: base(map[string]interface{}{"credentials": ""}), wantErr: true},
		{name: "invalid privacy status", params: base(map[string]interface{}{"privacyStatus": "secret"}), wantErr: true},
		{name: "invalid schedule time", params: base(map[string]interface{}{"scheduleTime": "25:00"}), wantErr: true},
		{name: "invalid start date", params: base(map[string]interface{}{"startDate": "01/04/2025"}), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Validate(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestModule_Validate_CredentialsFromEnv(t *testing.T) {
	f := newFixture(t)
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", f.credentials)

	err := New().Validate(map[string]interface{}{"input": f.manifest, "output": f.output})
	assert.NoError(t, err)
}

func TestModule_Execute(t *testing.T) {
	f := newFixture(t)
	svc := mocks.NewMockYouTubeService(t)
	client := &youtubeapi.Service{}

	svc.On("InitializeYouTubeService", mock.Anything, f.credentials).Return(client, nil)
	svc.On("UploadVideo", mock.Anything, client, mock.MatchedBy(func(u youtubesvc.VideoUpload) bool {
		return u.Title == "Intro" &&
			assert.ObjectsAreEqual([]string{"intro", "talks"}, u.Tags) &&
			u.PublishAt.Equal(time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)) &&
			u.CategoryID == defaultCategoryID &&
			u.PrivacyStatus == "private"
	})).Return("vid1", nil)
	svc.On("UploadVideo", mock.Anything, client, mock.MatchedBy(func(u youtubesvc.VideoUpload) bool {
		return u.Title == "Twist" &&
			u.Description == "The turn" &&
			u.PublishAt.Equal(time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC))
	})).Return("vid2", nil)
	svc.On("AddToPlaylist", mock.Anything, client, "PL123", "vid1").Return(nil)
	svc.On("AddToPlaylist", mock.Anything, client, "PL123", "vid2").Return(errors.New("quota"))

	result, err := newModule(svc).Execute(context.Background(), map[string]interface{}{
		"input":        f.manifest,
		"output":       f.output,
		"credentials":  f.credentials,
		"playlistId":   "PL123",
		"tags":         []string{"talks"},
		"scheduleTime": "09:00",
		"periodicity":  2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Statistics["uploaded"])
	assert.Equal(t, 0, result.Statistics["failed"])

	data, err := os.ReadFile(result.Outputs["uploadStatus"])
	require.NoError(t, err)
	var status struct {
		Uploads []Status `yaml:"uploads"`
	}
	require.NoError(t, yaml.Unmarshal(data, &status))
	require.Len(t, status.Uploads, 2)
	assert.Equal(t, "vid1", status.Uploads[0].VideoID)
	assert.Equal(t, "2025-03-11T09:00:00Z", status.Uploads[0].PublishAt)
	assert.Equal(t, "vid2", status.Uploads[1].VideoID)
}

func TestModule_Execute_PartialFailure(t *testing.T) {
	f := newFixture(t)
	svc := mocks.NewMockYouTubeService(t)
	client := &youtubeapi.Service{}

	svc.On("InitializeYouTubeService", mock.Anything, f.credentials).Return(client, nil)
	svc.On("UploadVideo", mock.Anything, client, mock.MatchedBy(func(u youtubesvc.VideoUpload) bool {
		return u.Title == "Intro" && u.PublishAt.IsZero()
	})).Return("", errors.New("failed to open video file"))
	svc.On("UploadVideo", mock.Anything, client, mock.MatchedBy(func(u youtubesvc.VideoUpload) bool {
		return u.Title == "Twist"
	})).Return("vid2", nil)

	result, err := newModule(svc).Execute(context.Background(), map[string]interface{}{
		"input":         f.manifest,
		"output":        f.output,
		"credentials":   f.credentials,
		"privacyStatus": "unlisted",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Statistics["uploaded"])
	assert.Equal(t, 1, result.Statistics["failed"])
	assert.Equal(t, false, result.Metadata["scheduled"])
}

func TestModule_Execute_Errors(t *testing.T) {
	t.Run("service init fails", func(t *testing.T) {
		f := newFixture(t)
		svc := mocks.NewMockYouTubeService(t)
		svc.On("InitializeYouTubeService", mock.Anything, f.credentials).Return(nil, errors.New("no token"))

		_, err := newModule(svc).Execute(context.Background(), map[string]interface{}{
			"input": f.manifest, "output": f.output, "credentials": f.credentials,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize YouTube service")
	})

	t.Run("every upload fails", func(t *testing.T) {
		f := newFixture(t)
		svc := mocks.NewMockYouTubeService(t)
		client := &youtubeapi.Service{}
		svc.On("InitializeYouTubeService", mock.Anything, f.credentials).Return(client, nil)
		svc.On("UploadVideo", mock.Anything, client, mock.Anything).Return("", errors.New("quota exceeded")).Twice()

		_, err := newModule(svc).Execute(context.Background(), map[string]interface{}{
			"input": f.manifest, "output": f.output, "credentials": f.credentials,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "none of the 2 shorts")
	})

	t.Run("empty manifest", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, shorts.WriteManifest(f.manifest, &shorts.Manifest{Source: "talk.mp4"}))
		svc := mocks.NewMockYouTubeService(t)

		_, err := newModule(svc).Execute(context.Background(), map[string]interface{}{
			"input": f.manifest, "output": f.output, "credentials": f.credentials,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lists no shorts")
	})
}

func TestSchedule(t *testing.T) {
	tests := []struct {
		name        string
		startDate   string
		time        string
		periodicity int
		want        []string
	}{
		{name: "no schedule", want: nil},
		{name: "later today", time: "18:00", periodicity: 1, want: []string{"2025-03-10T18:00:00Z", "2025-03-11T18:00:00Z"}},
		{name: "already passed today", time: "09:00", periodicity: 3, want: []string{"2025-03-11T09:00:00Z", "2025-03-14T09:00:00Z"}},
		{name: "future start date", startDate: "2025-04-01", time: "09:00", periodicity: 7, want: []string{"2025-04-01T09:00:00Z", "2025-04-08T09:00:00Z"}},
		{name: "past start date", startDate: "2025-01-01", time: "18:00", periodicity: 0, want: []string{"2025-03-10T18:00:00Z", "2025-03-11T18:00:00Z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, err := Schedule(fixedNow, tt.startDate, tt.time, tt.periodicity, 2)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, slots)
				return
			}
			got := make([]string, len(slots))
			for i, s := range slots {
				got[i] = s.Format(time.RFC3339)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Schedule(fixedNow, "", "7pm", 1, 1)
	assert.Error(t, err)
}
