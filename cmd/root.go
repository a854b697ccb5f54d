package cmd

import (
	"github.com/gnzdotmx/chapterize/internal/utils"
	"github.com/spf13/cobra"
)

var (
	// verbosityLevel is the command-line flag for setting the log level
	verbosityLevel string
)

var rootCmd = &cobra.Command{
	Use:   "chapterize",
	Short: "Turn long videos into subtitled vertical shorts",
	Long: `chapterize downloads or reads a video, transcribes it, asks an LLM for
the most engaging chapters and cuts each one into a 9:16 short with burned-in
subtitles. Steps are configurable workflows defined in YAML.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set the global log level based on the flag
		logLevel := utils.LogLevelFromString(verbosityLevel)
		utils.SetLogLevel(logLevel)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Initialize global flags
	rootCmd.PersistentFlags().StringVarP(&verbosityLevel, "log-level", "l", "normal",
		"Set the logging verbosity level: quiet, normal, verbose, debug")
}
