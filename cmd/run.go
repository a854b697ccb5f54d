package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gnzdotmx/chapterize/internal/config"
	"github.com/gnzdotmx/chapterize/internal/utils"
	"github.com/gnzdotmx/chapterize/internal/validator"
	"github.com/gnzdotmx/chapterize/internal/workflow"

	"github.com/spf13/cobra"
)

// runTimeout bounds a whole workflow run
const runTimeout = 24 * time.Hour

var (
	workflowFilePath  string
	inputFileOverride string
	outputFolderPath  string
	retryStep         string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a video processing workflow",
	Long: `Execute a video processing workflow defined in a YAML file.

Each run writes to a new <output>/<name>-YYYYMMDD-HHMMSS directory. With
--retry the run directory given by --output is reused and execution restarts
at the named step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputConfig, err := config.NewInputConfig(workflowFilePath, inputFileOverride, outputFolderPath, retryStep)
		if err != nil {
			return err
		}

		ctx, cancel := runContext()
		defer cancel()

		if err := checkTools(ctx); err != nil {
			return err
		}

		wf, err := workflow.LoadFromFile(inputConfig)
		if err != nil {
			return fmt.Errorf("failed to load workflow: %w", err)
		}

		var state *workflow.WorkflowState
		if inputConfig.Retry() {
			state, err = wf.ExecuteRetry(ctx, inputConfig.OutputPath, inputConfig.RetryStep)
		} else {
			state, err = wf.Execute(ctx)
		}
		if err != nil {
			if state != nil {
				utils.LogError("Run directory: %s", state.RunDir)
				utils.LogInfo("Fix the problem and resume with: --retry <step> --output %s", state.RunDir)
			}
			return fmt.Errorf("workflow execution failed: %w", err)
		}

		utils.LogSuccess("Results stored in %s", state.RunDir)
		return nil
	},
}

// runContext is cancelled on interrupt or after runTimeout
func runContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// checkTools validates that external dependencies are installed
func checkTools(ctx context.Context) error {
	v, err := validator.New()
	if err != nil {
		return err
	}
	if err := v.ValidateExternalTools(ctx); err != nil {
		return fmt.Errorf("dependency validation failed: %w", err)
	}
	return nil
}

func init() {
	runCmd.Flags().StringVarP(&workflowFilePath, "workflow", "w", "", "Path to workflow YAML file (required)")
	runCmd.Flags().StringVarP(&inputFileOverride, "input", "i", "", "Input file or URL (overrides the one in the workflow file)")
	runCmd.Flags().StringVarP(&outputFolderPath, "output", "o", "", "Output directory; with --retry, the run directory to resume")
	runCmd.Flags().StringVarP(&retryStep, "retry", "r", "", "Resume a failed run from this step")
	_ = runCmd.MarkFlagRequired("workflow")
	rootCmd.AddCommand(runCmd)
}
