// Package upload publishes the shorts listed in a manifest to YouTube.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gnzdotmx/chapterize/internal/config"
	modules "github.com/gnzdotmx/chapterize/internal/mod"
	"github.com/gnzdotmx/chapterize/internal/modules/shorts"
	youtubesvc "github.com/gnzdotmx/chapterize/internal/services/youtube"
	"github.com/gnzdotmx/chapterize/internal/utils"
	"gopkg.in/yaml.v3"
)

// StatusFileName is written next to the manifest
const StatusFileName = "uploads.yaml"

const (
	defaultCategoryID = "22" // People & Blogs
	dateLayout        = "2006-01-02"
)

// Module implements YouTube shorts upload
type Module struct {
	youtubeService youtubesvc.YouTubeService
	now            func() time.Time
}

// Params contains the parameters for uploading shorts
type Params struct {
	Input         string   `json:"input"`         // shorts manifest
	Output        string   `json:"output"`        // run directory
	Credentials   string   `json:"credentials"`   // OAuth client secrets JSON
	PlaylistID    string   `json:"playlistId"`    // optional playlist
	PrivacyStatus string   `json:"privacyStatus"` // private, unlisted or public
	CategoryID    string   `json:"categoryId"`
	ExtraTags     []string `json:"tags"`
	ScheduleTime  string   `json:"scheduleTime"` // HH:MM UTC; empty publishes now
	StartDate     string   `json:"startDate"`    // YYYY-MM-DD, default today
	Periodicity   int      `json:"periodicity"`  // days between scheduled shorts
}

// Status is the outcome of one upload
type Status struct {
	Title     string `yaml:"title"`
	File      string `yaml:"file"`
	VideoID   string `yaml:"video_id,omitempty"`
	PublishAt string `yaml:"publish_at,omitempty"`
	Error     string `yaml:"error,omitempty"`
}

// New creates a new upload module
func New() modules.Module {
	return NewWithService(&youtubesvc.Service{})
}

// NewWithService creates an upload module with a custom YouTube service
func NewWithService(svc youtubesvc.YouTubeService) modules.Module {
	return &Module{youtubeService: svc, now: time.Now}
}

// Name returns the module name
func (m *Module) Name() string {
	return "upload"
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
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}

	creds, err := credentialsPath(p.Credentials)
	if err != nil {
		return err
	}
	if err := utils.ValidateInputFile("credentials", creds); err != nil {
		return err
	}

	switch p.PrivacyStatus {
	case "", "private", "unlisted", "public":
	default:
		return &utils.ValidationError{Field: "privacyStatus", Message: fmt.Sprintf("invalid privacy status: %s", p.PrivacyStatus)}
	}
	if p.ScheduleTime != "" {
		if _, _, err := parseScheduleTime(p.ScheduleTime); err != nil {
			return &utils.ValidationError{Field: "scheduleTime", Message: "expected HH:MM", Err: err}
		}
	}
	if p.StartDate != "" {
		if _, err := time.Parse(dateLayout, p.StartDate); err != nil {
			return &utils.ValidationError{Field: "startDate", Message: "expected YYYY-MM-DD", Err: err}
		}
	}
	if p.Periodicity < 0 {
		return &utils.ValidationError{Field: "periodicity", Message: "periodicity must be positive"}
	}
	return nil
}

// credentialsPath falls back to GOOGLE_APPLICATION_CREDENTIALS
func credentialsPath(path string) (string, error) {
	if path == "" {
		path = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if path == "" {
		return "", &utils.ValidationError{Field: "credentials", Message: "credentials file path is required"}
	}
	expanded, err := utils.ExpandHomeDir(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand home directory: %w", err)
	}
	return expanded, nil
}

// Execute uploads every short in the manifest
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}
	if p.PrivacyStatus == "" {
		p.PrivacyStatus = "private"
	}
	if p.CategoryID == "" {
		p.CategoryID = defaultCategoryID
	}
	if p.Periodicity == 0 {
		p.Periodicity = 1
	}

	manifest, err := shorts.LoadManifest(p.Input)
	if err != nil {
		return modules.ModuleResult{}, err
	}
	if len(manifest.Shorts) == 0 {
		return modules.ModuleResult{}, fmt.Errorf("manifest %s lists no shorts", p.Input)
	}

	slots, err := Schedule(m.now(), p.StartDate, p.ScheduleTime, p.Periodicity, len(manifest.Shorts))
	if err != nil {
		return modules.ModuleResult{}, err
	}

	creds, err := credentialsPath(p.Credentials)
	if err != nil {
		return modules.ModuleResult{}, err
	}
	service, err := m.youtubeService.InitializeYouTubeService(ctx, creds)
	if err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to initialize YouTube service: %w", err)
	}

	statuses := make([]Status, 0, len(manifest.Shorts))
	uploaded := 0
	for i, s := range manifest.Shorts {
		if err := ctx.Err(); err != nil {
			return modules.ModuleResult{}, err
		}

		st := Status{Title: s.Title, File: s.File}
		up := youtubesvc.VideoUpload{
			FilePath:      s.File,
			Title:         s.Title,
			Description:   s.Description,
			Tags:          append(append([]string(nil), s.Tags...), p.ExtraTags...),
			CategoryID:    p.CategoryID,
			PrivacyStatus: p.PrivacyStatus,
		}
		if slots != nil {
			up.PublishAt = slots[i]
			st.PublishAt = slots[i].Format(time.RFC3339)
		}

		id, err := m.youtubeService.UploadVideo(ctx, service, up)
		if err != nil {
			utils.LogWarning("Failed to upload %s: %v", s.File, err)
			st.Error = err.Error()
			statuses = append(statuses, st)
			continue
		}
		st.VideoID = id
		uploaded++
		utils.LogSuccess("Uploaded %q as %s", s.Title, id)

		if p.PlaylistID != "" {
			if err := m.youtubeService.AddToPlaylist(ctx, service, p.PlaylistID, id); err != nil {
				utils.LogWarning("Failed to add %s to playlist %s: %v", id, p.PlaylistID, err)
			} else {
				utils.LogVerbose("Added %s to playlist %s", id, p.PlaylistID)
			}
		}
		statuses = append(statuses, st)
	}

	shortsDir, err := config.Paths{Root: p.Output}.ShortsDir()
	if err != nil {
		return modules.ModuleResult{}, err
	}
	statusPath := filepath.Join(shortsDir, StatusFileName)
	if err := writeStatus(statusPath, statuses); err != nil {
		return modules.ModuleResult{}, err
	}

	stats := map[string]interface{}{
		"uploaded": uploaded,
		"failed":   len(manifest.Shorts) - uploaded,
	}
	if uploaded == 0 {
		return modules.ModuleResult{Statistics: stats}, fmt.Errorf("none of the %d shorts could be uploaded", len(manifest.Shorts))
	}

	return modules.ModuleResult{
		Outputs: map[string]string{
			"uploadStatus": statusPath,
		},
		Metadata: map[string]interface{}{
			"privacyStatus": p.PrivacyStatus,
			"playlistId":    p.PlaylistID,
			"scheduled":     slots != nil,
		},
		Statistics: stats,
	}, nil
}

func writeStatus(path string, statuses []Status) error {
	data, err := yaml.Marshal(map[string]interface{}{"uploads": statuses})
	if err != nil {
		return fmt.Errorf("failed to encode upload status: %w", err)
	}
	return utils.WriteTextFile(path, string(data))
}

// Schedule returns n publish times, one every periodicity days at
// scheduleTime (UTC). The first slot is the earliest one on or after
// startDate that is not in the past. An empty scheduleTime returns nil.
func Schedule(now time.Time, startDate, scheduleTime string, periodicity, n int) ([]time.Time, error) {
	if scheduleTime == "" {
		return nil, nil
	}
	hour, minute, err := parseScheduleTime(scheduleTime)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule time format: %w", err)
	}
	if periodicity < 1 {
		periodicity = 1
	}

	now = now.UTC()
	day := now
	if startDate != "" {
		start, err := time.Parse(dateLayout, startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date format: %w", err)
		}
		if start.After(day) {
			day = start
		}
	}

	first := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
	if first.Before(now) {
		first = first.AddDate(0, 0, 1)
	}

	slots := make([]time.Time, n)
	for i := range slots {
		slots[i] = first.AddDate(0, 0, i*periodicity)
	}
	return slots, nil
}

// parseScheduleTime parses HH:MM into hours and minutes
func parseScheduleTime(timeStr string) (int, int, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format, expected HH:MM")
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour: %s", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute: %s", parts[1])
	}

	return hour, minute, nil
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{Name: "input", Description: "Shorts manifest", Patterns: []string{".yaml"}, Type: string(modules.InputTypeFile)},
			{Name: "output", Description: "Run directory", Type: string(modules.InputTypeDirectory)},
		},
		OptionalInputs: []modules.ModuleInput{
			{Name: "credentials", Description: "Google OAuth client file (default: GOOGLE_APPLICATION_CREDENTIALS)", Patterns: []string{".json"}, Type: string(modules.InputTypeFile)},
			{Name: "playlistId", Description: "YouTube playlist ID", Type: string(modules.InputTypeData)},
			{Name: "privacyStatus", Description: "private, unlisted or public (default: private)", Type: string(modules.InputTypeData)},
			{Name: "categoryId", Description: "Video category ID (default: 22)", Type: string(modules.InputTypeData)},
			{Name: "tags", Description: "Tags added to every short", Type: string(modules.InputTypeData)},
			{Name: "scheduleTime", Description: "Publish time HH:MM UTC", Type: string(modules.InputTypeData)},
			{Name: "startDate", Description: "First publish date YYYY-MM-DD", Type: string(modules.InputTypeData)},
			{Name: "periodicity", Description: "Days between scheduled shorts (default: 1)", Type: string(modules.InputTypeData)},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{Name: "uploadStatus", Description: "Upload result per short", Patterns: []string{".yaml"}, Type: string(modules.OutputTypeFile)},
		},
	}
}
