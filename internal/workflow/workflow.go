package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gnzdotmx/chapterize/internal/config"
	modules "github.com/gnzdotmx/chapterize/internal/mod"
	"github.com/gnzdotmx/chapterize/internal/modules/chapterize"
	"github.com/gnzdotmx/chapterize/internal/modules/download"
	extractaudio "github.com/gnzdotmx/chapterize/internal/modules/extract_audio"
	"github.com/gnzdotmx/chapterize/internal/modules/shorts"
	"github.com/gnzdotmx/chapterize/internal/modules/transcribe"
	"github.com/gnzdotmx/chapterize/internal/modules/upload"
	"github.com/gnzdotmx/chapterize/internal/utils"
	"gopkg.in/yaml.v3"
)

// runDirTimeLayout is appended to the workflow name to form a run directory
const runDirTimeLayout = "20060102-150405"

// RunDirName returns "<name>-YYYYMMDD-HHMMSS" for a run started at t
func RunDirName(name string, t time.Time) string {
	return utils.SanitizeFilename(name) + "-" + t.Format(runDirTimeLayout)
}

// ParseRunDirTime extracts the start time from a run directory name
func ParseRunDirTime(dir string) (time.Time, bool) {
	base := filepath.Base(dir)
	if len(base) < len(runDirTimeLayout)+2 || base[len(base)-len(runDirTimeLayout)-1] != '-' {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(runDirTimeLayout, base[len(base)-len(runDirTimeLayout):], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DefaultRegistry returns a registry holding every pipeline module
func DefaultRegistry() (*modules.ModuleRegistry, error) {
	registry := modules.NewModuleRegistry()
	for _, m := range []modules.Module{
		download.New(),
		extractaudio.New(),
		transcribe.New(),
		chapterize.New(),
		shorts.New(),
		upload.New(),
	} {
		if err := registry.Register(m); err != nil {
			return nil, fmt.Errorf("failed to register %s module: %w", m.Name(), err)
		}
	}
	return registry, nil
}

// Parse reads a workflow definition
func Parse(data []byte) (*Workflow, error) {
	var workflow Workflow
	if err := yaml.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file: %w", err)
	}
	return &workflow, nil
}

// LoadFromFile loads a workflow from a YAML file. Input and output given on
// the command line replace the ones in the file.
func LoadFromFile(inputConfig *config.InputConfig) (*Workflow, error) {
	data, err := os.ReadFile(inputConfig.WorkflowPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	workflow, err := Parse(data)
	if err != nil {
		return nil, err
	}

	registry, err := DefaultRegistry()
	if err != nil {
		return nil, err
	}
	workflow.registry = registry

	if inputConfig.InputPath != "" {
		workflow.Input = inputConfig.InputPath
		utils.LogVerbose("Using %s input from command line: %s", inputConfig.InputKind, inputConfig.InputPath)
	}
	if inputConfig.OutputPath != "" {
		workflow.Output = inputConfig.OutputPath
	}
	if workflow.Output == "" {
		cfg, err := config.FromEnv()
		if err != nil {
			return nil, err
		}
		workflow.Output = cfg.BaseDataDir
	}
	return workflow, nil
}

// New creates a workflow from steps, run against registry
func New(name string, registry *modules.ModuleRegistry, steps ...Step) *Workflow {
	return &Workflow{Name: name, Steps: steps, registry: registry}
}

// SetRegistry replaces the module registry
func (w *Workflow) SetRegistry(registry *modules.ModuleRegistry) {
	w.registry = registry
}

// Validate checks the workflow structure: unique step names, known modules
// and placeholders that only refer to outputs of earlier steps. Module
// parameters are validated right before each step runs, once their
// placeholders can be resolved.
func (w *Workflow) Validate() error {
	if w.registry == nil {
		return fmt.Errorf("workflow %q has no module registry", w.Name)
	}
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("workflow %q has no steps", w.Name)
	}

	seen := make(map[string]modules.Module, len(w.Steps))
	for i, step := range w.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d has no name", i+1)
		}
		if strings.ContainsAny(step.Name, ".{}") {
			return fmt.Errorf("step name %q cannot contain '.', '{' or '}'", step.Name)
		}
		if _, dup := seen[step.Name]; dup {
			return fmt.Errorf("duplicate step name %q", step.Name)
		}

		module, err := w.registry.Get(step.Module)
		if err != nil {
			return fmt.Errorf("step %s: %w", step.Name, err)
		}

		for _, ref := range references(step.Parameters) {
			prev, ok := seen[ref.Step]
			if !ok {
				return fmt.Errorf("step %s: ${%s.%s} does not refer to an earlier step", step.Name, ref.Step, ref.Output)
			}
			if !prev.GetIO().HasOutput(ref.Output) {
				return fmt.Errorf("step %s: module %s does not produce %q", step.Name, prev.Name(), ref.Output)
			}
		}
		if usesInput(step.Parameters) && w.Input == "" {
			return fmt.Errorf("step %s uses ${input} but no input was given", step.Name)
		}
		seen[step.Name] = module
	}
	return nil
}

// buildGraph adds one node per step. Steps keep their file order, and a
// step also depends on every step whose outputs it references.
func (w *Workflow) buildGraph(graph *WorkflowGraph) (map[string]*WorkflowNode, error) {
	nodeMap := make(map[string]*WorkflowNode, len(w.Steps))
	for _, step := range w.Steps {
		nodeMap[step.Name] = graph.AddNode(step)
	}

	for i := 1; i < len(w.Steps); i++ {
		if err := graph.AddEdge(nodeMap[w.Steps[i-1].Name].ID, nodeMap[w.Steps[i].Name].ID); err != nil {
			return nil, fmt.Errorf("failed to add sequential edge: %w", err)
		}
	}
	for _, step := range w.Steps {
		for _, ref := range references(step.Parameters) {
			from, ok := nodeMap[ref.Step]
			if !ok {
				return nil, fmt.Errorf("step %s refers to unknown step %s", step.Name, ref.Step)
			}
			if err := graph.AddEdge(from.ID, nodeMap[step.Name].ID); err != nil {
				return nil, fmt.Errorf("failed to add dependency edge: %w", err)
			}
		}
	}
	return nodeMap, nil
}

// Execute runs every step in a new run directory under Output
func (w *Workflow) Execute(ctx context.Context) (*WorkflowState, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("workflow validation failed: %w", err)
	}

	runDir := filepath.Join(w.Output, RunDirName(w.Name, time.Now()))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	utils.LogInfo("Starting workflow: %s", w.Name)
	utils.LogVerbose("Results will be stored in: %s", runDir)

	state := newState(w.Name, w.Input, runDir)
	return state, w.run(ctx, state, w.Steps[0].Name, nil)
}

// ExecuteRetry re-runs a previous run in runDir from the named step. Steps
// before it are not executed; their outputs are restored from the saved
// state so later placeholders still resolve.
func (w *Workflow) ExecuteRetry(ctx context.Context, runDir, stepName string) (*WorkflowState, error) {
	start := -1
	for i, step := range w.Steps {
		if step.Name == stepName {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, fmt.Errorf("workflow step '%s' not found in workflow", stepName)
	}

	restored := make(map[string]map[string]string)
	prev, err := LoadWorkflowState(StatePath(runDir, w.Name))
	if err != nil {
		utils.LogWarning("No previous state found in %s, starting fresh from step %s", runDir, stepName)
	} else {
		if w.Input == "" {
			w.Input = prev.Input
		}
		for _, step := range w.Steps[:start] {
			node, ok := prev.Graph.NodeByName(step.Name)
			if !ok || node.Status != NodeStatusComplete {
				return nil, fmt.Errorf("step %s did not complete in the previous run; retry from it instead", step.Name)
			}
			restored[step.Name] = node.Outputs
		}
	}

	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("workflow validation failed: %w", err)
	}

	utils.LogInfo("Retrying workflow %s from step %s", w.Name, stepName)
	state := newState(w.Name, w.Input, runDir)
	return state, w.run(ctx, state, stepName, restored)
}

// run executes the graph in topological order, skipping steps before
// startStep. The state file is rewritten after every step.
func (w *Workflow) run(ctx context.Context, state *WorkflowState, startStep string, restored map[string]map[string]string) error {
	if _, err := w.buildGraph(state.Graph); err != nil {
		return w.finish(state, err)
	}
	order, err := state.Graph.TopologicalSort()
	if err != nil {
		return w.finish(state, fmt.Errorf("failed to determine execution order: %w", err))
	}

	vs := vars{input: w.Input, output: state.RunDir, results: make(map[string]map[string]string)}
	started := false
	for i, nodeID := range order {
		node := state.Graph.Nodes[nodeID]
		step := node.Step

		if step.Name == startStep {
			started = true
		}
		if !started {
			outputs := restored[step.Name]
			vs.results[step.Name] = outputs
			status := NodeStatusSkipped
			if outputs != nil {
				status = NodeStatusComplete
			}
			state.UpdateNodeResult(nodeID, outputs, nil, nil)
			state.UpdateNodeStatus(nodeID, status)
			state.AddEvent(WorkflowEvent{NodeID: nodeID, Type: EventRestored, Message: fmt.Sprintf("Restored %s from previous run", step.Name)})
			continue
		}

		if err := ctx.Err(); err != nil {
			return w.finish(state, fmt.Errorf("workflow cancelled before %s: %w", step.Name, err))
		}

		state.Lock()
		state.CurrentNode = nodeID
		state.Unlock()
		state.UpdateNodeStatus(nodeID, NodeStatusRunning)
		state.AddEvent(WorkflowEvent{NodeID: nodeID, Type: EventStarted, Message: fmt.Sprintf("Started executing %s", step.Name)})
		utils.LogInfo("[%d/%d] %s (module: %s)", i+1, len(order), step.Name, step.Module)

		result, err := w.executeStep(ctx, vs, node, i == 0)
		if err != nil {
			node.Error = err.Error()
			state.UpdateNodeStatus(nodeID, NodeStatusFailed)
			state.AddEvent(WorkflowEvent{
				NodeID:  nodeID,
				Type:    EventFailed,
				Message: fmt.Sprintf("Failed executing %s: %v", step.Name, err),
				Data:    map[string]interface{}{"error": err.Error()},
			})
			return w.finish(state, fmt.Errorf("step %s (%s) failed: %w", step.Name, step.Module, err))
		}

		vs.results[step.Name] = result.Outputs
		state.UpdateNodeResult(nodeID, result.Outputs, result.Metadata, result.Statistics)
		state.UpdateNodeStatus(nodeID, NodeStatusComplete)
		state.AddEvent(WorkflowEvent{
			NodeID:  nodeID,
			Type:    EventCompleted,
			Message: fmt.Sprintf("Completed executing %s", step.Name),
			Data:    result.Statistics,
		})
		utils.LogSuccess("Completed %s", step.Name)

		if err := SaveWorkflowState(state, StatePath(state.RunDir, state.Name)); err != nil {
			utils.LogWarning("Failed to save workflow state: %v", err)
		}
	}

	return w.finish(state, nil)
}

// executeStep resolves the step parameters, validates them and runs the module
func (w *Workflow) executeStep(ctx context.Context, vs vars, node *WorkflowNode, first bool) (modules.ModuleResult, error) {
	module, err := w.registry.Get(node.Step.Module)
	if err != nil {
		return modules.ModuleResult{}, err
	}

	resolved, err := vs.resolve(node.Step.Parameters)
	if err != nil {
		return modules.ModuleResult{}, err
	}
	params, _ := resolved.(map[string]interface{})
	if params == nil {
		params = make(map[string]interface{})
	}

	// the first step reads the workflow input unless told otherwise
	if _, ok := params["input"]; !ok && first && vs.input != "" {
		params["input"] = vs.input
	}
	if _, ok := params["output"]; !ok {
		params["output"] = vs.output
	}
	node.Inputs = params

	if err := module.Validate(params); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("invalid parameters: %w", err)
	}
	return module.Execute(ctx, params)
}

// finish records the final status and writes the state file
func (w *Workflow) finish(state *WorkflowState, runErr error) error {
	state.Lock()
	state.EndTime = time.Now()
	if runErr != nil {
		state.Status = WorkflowStatusFailed
	} else {
		state.Status = WorkflowStatusComplete
		state.CurrentNode = ""
	}
	state.Unlock()

	if err := SaveWorkflowState(state, StatePath(state.RunDir, state.Name)); err != nil {
		if runErr != nil {
			utils.LogWarning("Failed to save workflow state: %v", err)
			return runErr
		}
		return fmt.Errorf("failed to save workflow state: %w", err)
	}

	if runErr == nil {
		utils.LogSuccess("Workflow completed: %s", w.Name)
		utils.LogVerbose("Results stored in: %s", state.RunDir)
	}
	return runErr
}
