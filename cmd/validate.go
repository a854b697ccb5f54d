package cmd

import (
	"fmt"
	"strings"

	"github.com/gnzdotmx/chapterize/internal/utils"
	"github.com/gnzdotmx/chapterize/internal/validator"
	"github.com/gnzdotmx/chapterize/internal/workflow"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate environment setup",
	Long:  `Check if all required external tools and configurations are properly set up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		utils.LogInfo("Validating environment...")

		v, err := validator.New()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		// Validate external tools (ffmpeg, ffprobe, ...)
		if err := v.ValidateExternalTools(cmd.Context()); err != nil {
			return fmt.Errorf("external tools validation failed: %w", err)
		}
		utils.LogSuccess("External tools: OK")

		// Validate environment variables for the LLM
		if err := v.ValidateEnvVars(); err != nil {
			return fmt.Errorf("environment variables validation failed: %w", err)
		}
		utils.LogSuccess("Environment variables: OK")

		registry, err := workflow.DefaultRegistry()
		if err != nil {
			return err
		}
		utils.LogSuccess("Modules: %s", strings.Join(registry.Names(), ", "))

		utils.LogSuccess("Environment validation completed successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
