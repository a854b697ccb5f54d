package workflow

import modules "github.com/gnzdotmx/chapterize/internal/mod"

// PipelineOptions configures the built-in shorts pipeline
type PipelineOptions struct {
	Download  bool   // input is a URL to fetch first
	Quality   string // download height, e.g. "1080"
	Language  string
	Whisper   string // whisper model
	Model     string // chaptering model
	Workers   int
	MinScore  float64
	MaxShorts int
	OnError   string
	AudioFile string

	Upload        bool
	Credentials   string
	PlaylistID    string
	PrivacyStatus string
	ScheduleTime  string
}

// ShortsPipeline returns the download, audio, transcript, chapters, shorts
// and optional upload steps as a workflow reading ${input}.
func ShortsPipeline(registry *modules.ModuleRegistry, opts PipelineOptions) *Workflow {
	var steps []Step
	video := "${input}"

	if opts.Download {
		steps = append(steps, Step{Name: "download", Module: "download", Parameters: params(
			"input", "${input}",
			"quality", opts.Quality,
		)})
		video = "${download.video}"
	}

	steps = append(steps,
		Step{Name: "audio", Module: "extractaudio", Parameters: params("input", video)},
		Step{Name: "transcript", Module: "transcribe", Parameters: params(
			"input", "${audio.audio}",
			"model", opts.Whisper,
			"language", opts.Language,
		)},
		Step{Name: "chapters", Module: "chapterize", Parameters: params(
			"input", "${transcript.transcript}",
			"model", opts.Model,
			"language", opts.Language,
		)},
		Step{Name: "shorts", Module: "shorts", Parameters: params(
			"input", video,
			"chapters", "${chapters.chapters}",
			"transcript", "${transcript.transcript}",
			"audioFile", opts.AudioFile,
			"workers", opts.Workers,
			"minScore", opts.MinScore,
			"maxShorts", opts.MaxShorts,
			"onError", opts.OnError,
		)},
	)

	if opts.Upload {
		steps = append(steps, Step{Name: "upload", Module: "upload", Parameters: params(
			"input", "${shorts.manifest}",
			"credentials", opts.Credentials,
			"playlistId", opts.PlaylistID,
			"privacyStatus", opts.PrivacyStatus,
			"scheduleTime", opts.ScheduleTime,
		)})
	}

	w := New("shorts", registry, steps...)
	w.Description = "Turn a long video into subtitled vertical shorts"
	return w
}

// params builds a parameter map from key/value pairs, dropping zero values
// so module defaults apply.
func params(kv ...interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key := kv[i].(string)
		switch v := kv[i+1].(type) {
		case string:
			if v == "" {
				continue
			}
		case int:
			if v == 0 {
				continue
			}
		case float64:
			if v == 0 {
				continue
			}
		}
		out[key] = kv[i+1]
	}
	return out
}
