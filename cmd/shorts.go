package cmd

import (
	"fmt"

	"github.com/gnzdotmx/chapterize/internal/config"
	"github.com/gnzdotmx/chapterize/internal/utils"
	"github.com/gnzdotmx/chapterize/internal/workflow"

	"github.com/spf13/cobra"
)

var (
	shortsOutput string
	shortsOpts   workflow.PipelineOptions
)

var shortsCmd = &cobra.Command{
	Use:   "shorts <url|video>",
	Short: "Cut subtitled vertical shorts from a video",
	Long: `Run the built-in pipeline: download (for URLs), extract audio, transcribe,
pick chapters with the LLM and render one vertical short per chapter.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		if config.IsURL(input) {
			shortsOpts.Download = true
		} else if err := utils.ValidateInputFile("input", input); err != nil {
			return err
		}

		cfg, err := config.FromEnv()
		if err != nil {
			return err
		}
		if shortsOutput == "" {
			shortsOutput = cfg.BaseDataDir
		}

		ctx, cancel := runContext()
		defer cancel()

		if err := checkTools(ctx); err != nil {
			return err
		}

		registry, err := workflow.DefaultRegistry()
		if err != nil {
			return err
		}
		wf := workflow.ShortsPipeline(registry, shortsOpts)
		wf.Input = input
		wf.Output = shortsOutput

		state, err := wf.Execute(ctx)
		if err != nil {
			if state != nil {
				utils.LogError("Partial results kept in %s", state.RunDir)
			}
			return fmt.Errorf("shorts pipeline failed: %w", err)
		}

		if node, ok := state.Graph.NodeByName("shorts"); ok {
			utils.LogSuccess("Shorts written to %s", node.Outputs["shorts"])
		}
		return nil
	},
}

func init() {
	f := shortsCmd.Flags()
	f.StringVarP(&shortsOutput, "output", "o", "", "Output directory (default: BASE_DATA_DIR)")
	f.StringVarP(&shortsOpts.Quality, "quality", "q", "", "Download height: 480, 720, 1080, 1440 or 2160")
	f.StringVar(&shortsOpts.Language, "language", "", "Spoken language of the video")
	f.StringVar(&shortsOpts.Whisper, "whisper-model", "", "Whisper model (default: turbo)")
	f.StringVar(&shortsOpts.Model, "model", "", "LLM model or alias (default: GEMINI_MODEL)")
	f.IntVarP(&shortsOpts.Workers, "workers", "j", 0, "Chapters rendered in parallel (default: WORKERS)")
	f.Float64Var(&shortsOpts.MinScore, "min-score", 0, "Minimum engagement score of a chapter")
	f.IntVarP(&shortsOpts.MaxShorts, "max", "n", 0, "Maximum number of shorts")
	f.StringVar(&shortsOpts.OnError, "on-error", "", "What to do when a chapter fails: skip or abort")
	f.StringVar(&shortsOpts.AudioFile, "audio", "", "Audio track to merge into the video before cutting")
	f.BoolVar(&shortsOpts.Upload, "upload", false, "Upload the shorts to YouTube")
	f.StringVar(&shortsOpts.Credentials, "credentials", "", "Google OAuth client file (default: GOOGLE_APPLICATION_CREDENTIALS)")
	f.StringVar(&shortsOpts.PlaylistID, "playlist", "", "YouTube playlist to add the shorts to")
	f.StringVar(&shortsOpts.PrivacyStatus, "privacy", "", "private, unlisted or public")
	f.StringVar(&shortsOpts.ScheduleTime, "schedule", "", "Publish one short per day at HH:MM UTC")
	rootCmd.AddCommand(shortsCmd)
}
