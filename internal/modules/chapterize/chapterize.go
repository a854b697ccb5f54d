// Package chapterize asks an LLM to split a transcript into chapters worth
// cutting as shorts.
package chapterize

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gnzdotmx/chapterize/internal/chapters"
	"github.com/gnzdotmx/chapterize/internal/config"
	modules "github.com/gnzdotmx/chapterize/internal/mod"
	"github.com/gnzdotmx/chapterize/internal/services/llm"
	"github.com/gnzdotmx/chapterize/internal/transcript"
	"github.com/gnzdotmx/chapterize/internal/utils"
	"gopkg.in/yaml.v3"
)

// contextKey is a type for context keys
type contextKey string

// LLMServiceKey is the context key for the LLM service
const LLMServiceKey = contextKey("llm_service")

// Module implements chapter generation
type Module struct{}

// Params contains the parameters for chapter generation
type Params struct {
	Input            string  `json:"input"`            // transcript (.json or .srt)
	Output           string  `json:"output"`           // run directory; chapters land in chapters/
	Model            string  `json:"model"`            // model name or alias (default from GEMINI_MODEL)
	Temperature      float32 `json:"temperature"`      // default 0.4
	MaxTokens        int     `json:"maxTokens"`        // 0 leaves the server default
	MinDuration      int     `json:"minDuration"`      // seconds (default 30)
	MaxDuration      int     `json:"maxDuration"`      // seconds (default 90)
	Language         string  `json:"language"`         // language of titles (default: transcript language)
	PromptFilePath   string  `json:"promptFilePath"`   // custom prompt YAML
	RequestTimeoutMs int     `json:"requestTimeoutMs"` // default 120000
}

// PromptData is the layout of a custom prompt YAML file. Prompt receives
// the minimum duration, maximum duration, language and transcript, in that
// order, through fmt verbs.
type PromptData struct {
	Title  string `yaml:"title"`
	Role   string `yaml:"role"`
	Prompt string `yaml:"prompt"`
}

const defaultRole = "You are a video editor who finds self-contained, engaging moments in long-form videos."

const defaultPrompt = `Split the transcript below into chapters that work as standalone vertical shorts.

Rules:
- Each chapter must be between %d and %d seconds long.
- Chapters must not overlap and must follow the timestamps in the transcript.
- Write titles in %s, at most 80 characters.
- engagement_score is your estimate in [0, 1] of how well the chapter holds attention on its own.

Reply with JSON only, in exactly this shape:
{"chapters": [{"title": "...", "start": 12.5, "end": 71.0, "engagement_score": 0.8}]}

Times are seconds from the start of the video.

Transcript ([start-end] text):
%s`

// New creates a new chapterize module
func New() modules.Module {
	return &Module{}
}

// Name returns the module name
func (m *Module) Name() string {
	return "chapterize"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	if err := utils.ValidateInputFile("input", p.Input); err != nil {
		return err
	}
	if err := utils.ValidateFileExtension(p.Input, []string{".json", ".srt"}); err != nil {
		return err
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}
	if p.Model != "" {
		if _, err := config.ResolveModel(p.Model); err != nil {
			return &utils.ValidationError{Field: "model", Message: "unknown model", Err: err}
		}
	}
	if p.MinDuration > 0 && p.MaxDuration > 0 && p.MinDuration > p.MaxDuration {
		return fmt.Errorf("minDuration (%d) cannot be greater than maxDuration (%d)", p.MinDuration, p.MaxDuration)
	}
	if p.PromptFilePath != "" {
		if _, err := os.Stat(p.PromptFilePath); os.IsNotExist(err) {
			return fmt.Errorf("prompt template file %s does not exist", p.PromptFilePath)
		}
	}
	return nil
}

// getLLMService returns the service from ctx or builds one from the environment
func (m *Module) getLLMService(ctx context.Context) (llm.Servicer, error) {
	if service, ok := ctx.Value(LLMServiceKey).(llm.Servicer); ok {
		return service, nil
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return llm.NewFromConfig(cfg)
}

// Execute generates, validates and writes the chapters
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}
	if p.Temperature == 0 {
		p.Temperature = 0.4
	}
	if p.MinDuration == 0 {
		p.MinDuration = 30
	}
	if p.MaxDuration == 0 {
		p.MaxDuration = 90
	}
	if p.RequestTimeoutMs == 0 {
		p.RequestTimeoutMs = 120000
	}

	model := ""
	if p.Model != "" {
		resolved, err := config.ResolveModel(p.Model)
		if err != nil {
			return modules.ModuleResult{}, err
		}
		model = string(resolved)
	}

	tr, err := transcript.Load(p.Input)
	if err != nil {
		return modules.ModuleResult{}, err
	}
	if len(tr.Segments) == 0 {
		return modules.ModuleResult{}, fmt.Errorf("transcript %s has no segments", p.Input)
	}

	role, prompt, err := m.getPromptTemplate(p.PromptFilePath)
	if err != nil {
		return modules.ModuleResult{}, err
	}
	language := p.Language
	if language == "" {
		language = tr.Language
	}
	if language == "" {
		language = "the language of the transcript"
	}

	service, err := m.getLLMService(ctx)
	if err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to initialize LLM service: %w", err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: role},
		{Role: llm.RoleUser, Content: fmt.Sprintf(prompt, p.MinDuration, p.MaxDuration, language, tr.Timestamped())},
	}

	utils.LogInfo("Generating chapters for %s (%d segments)", p.Input, len(tr.Segments))
	reply, err := service.GetContent(ctx, messages, llm.CompletionOptions{
		Model:          model,
		Temperature:    p.Temperature,
		MaxTokens:      p.MaxTokens,
		RequestTimeout: time.Duration(p.RequestTimeoutMs) * time.Millisecond,
		JSONMode:       true,
	})
	if err != nil {
		return modules.ModuleResult{}, fmt.Errorf("API request failed: %w", err)
	}

	res, err := chapters.Decode(reply)
	if err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to parse API response: %w\nResponse preview: %s", err, preview(reply, 500))
	}

	proposed := len(res.Chapters)
	valid := chapters.Valid(clampToDuration(res.Chapters, tr.Duration()))
	if len(valid) == 0 {
		return modules.ModuleResult{}, fmt.Errorf("model proposed %d chapters, none valid", proposed)
	}

	chapterDir, err := config.Paths{Root: p.Output}.ChapterDir()
	if err != nil {
		return modules.ModuleResult{}, err
	}
	outPath := chapters.PathFor(chapterDir, p.Input)
	if err := chapters.Write(outPath, &chapters.Result{Source: p.Input, Chapters: valid}); err != nil {
		return modules.ModuleResult{}, err
	}

	utils.LogSuccess("Saved %d chapters to %s", len(valid), outPath)
	return modules.ModuleResult{
		Outputs: map[string]string{
			"chapters": outPath,
		},
		Metadata: map[string]interface{}{
			"inputFile": p.Input,
			"model":     model,
		},
		Statistics: map[string]interface{}{
			"proposed": proposed,
			"valid":    len(valid),
		},
	}, nil
}

// clampToDuration trims chapter ends that run past the transcript and
// drops chapters that start after it.
func clampToDuration(chs []chapters.Chapter, duration float64) []chapters.Chapter {
	if duration <= 0 {
		return chs
	}
	out := make([]chapters.Chapter, 0, len(chs))
	for _, c := range chs {
		if c.Start >= duration {
			utils.LogWarning("Skipping chapter %q: starts at %.2f, after the transcript ends", c.Title, c.Start)
			continue
		}
		if c.End > duration {
			c.End = duration
		}
		out = append(out, c)
	}
	return out
}

// getPromptTemplate returns the role and prompt from file or the defaults
func (m *Module) getPromptTemplate(path string) (string, string, error) {
	if path == "" {
		return defaultRole, defaultPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to load prompt template: %w", err)
	}
	var pd PromptData
	if err := yaml.Unmarshal(data, &pd); err != nil {
		return "", "", fmt.Errorf("failed to parse prompt template: %w", err)
	}
	if strings.TrimSpace(pd.Prompt) == "" {
		return "", "", fmt.Errorf("prompt template %s has no prompt", path)
	}
	if pd.Role == "" {
		pd.Role = defaultRole
	}
	utils.LogInfo("Using prompt template: %s", path)
	return pd.Role, pd.Prompt, nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "input",
				Description: "Path to transcript file",
				Patterns:    []string{".json", ".srt"},
				Type:        string(modules.InputTypeFile),
			},
			{
				Name:        "output",
				Description: "Run directory",
				Type:        string(modules.InputTypeDirectory),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{Name: "model", Description: "Model name or alias (FLASH, PRO, ...)", Type: string(modules.InputTypeData)},
			{Name: "temperature", Description: "Sampling temperature (default: 0.4)", Type: string(modules.InputTypeData)},
			{Name: "minDuration", Description: "Minimum chapter length in seconds", Type: string(modules.InputTypeData)},
			{Name: "maxDuration", Description: "Maximum chapter length in seconds", Type: string(modules.InputTypeData)},
			{Name: "language", Description: "Language of chapter titles", Type: string(modules.InputTypeData)},
			{Name: "promptFilePath", Description: "Path to custom prompt YAML file", Type: string(modules.InputTypeFile)},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "chapters",
				Description: "Chapters JSON file",
				Patterns:    []string{".json"},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
