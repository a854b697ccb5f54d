// Package youtube publishes finished shorts to a YouTube channel.
package youtube

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gnzdotmx/chapterize/internal/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Required OAuth scopes for YouTube API
var requiredScopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube.force-ssl",
}

const (
	tokenName    = "youtube"
	callbackPort = 8080
	maxTags      = 30
	maxTagLen    = 30
	maxTitleLen  = 100
)

// Service implements YouTubeService against the real API
type Service struct{}

// InitializeYouTubeService creates a YouTube client, running the browser
// consent flow when no valid token is stored.
func (m *Service) InitializeYouTubeService(ctx context.Context, credentialsPath string) (*youtube.Service, error) {
	credentials, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(credentials, requiredScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth config: %w", err)
	}

	tokenStorage, err := utils.NewTokenStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token storage: %w", err)
	}

	token, err := tokenStorage.LoadToken(tokenName)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	// an expired token with a refresh token is renewed by the token source
	if token == nil || (!token.Valid() && token.RefreshToken == "") {
		token, err = authorize(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := tokenStorage.SaveToken(tokenName, token); err != nil {
			utils.LogWarning("Failed to save token: %v", err)
		}
	} else {
		utils.LogInfo("Using existing authorization token")
	}

	service, err := youtube.NewService(ctx, option.WithTokenSource(config.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return service, nil
}

func authorize(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	callbackServer := utils.NewOAuthCallbackServer()
	if err := callbackServer.Start(callbackPort); err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	defer func() {
		if err := callbackServer.Stop(); err != nil {
			utils.LogWarning("Failed to stop callback server: %v", err)
		}
	}()

	config.RedirectURL = fmt.Sprintf("http://localhost:%d", callbackPort)
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	utils.LogInfo("Authorize chapterize in your browser: %s", authURL)
	if err := utils.OpenURL(authURL); err != nil {
		utils.LogWarning("Failed to open browser: %v", err)
	}

	code := callbackServer.WaitForCode()
	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

// UploadVideo uploads one short and returns its video id
func (m *Service) UploadVideo(ctx context.Context, service *youtube.Service, upload VideoUpload) (string, error) {
	file, err := os.Open(upload.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			utils.LogWarning("Failed to close video file: %v", err)
		}
	}()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       ShortTitle(upload.Title),
			Description: upload.Description,
			CategoryId:  upload.CategoryID,
			Tags:        CleanTags(upload.Tags),
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           upload.PrivacyStatus,
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
	if !upload.PublishAt.IsZero() {
		// scheduled videos must stay private until publishAt
		video.Status.PrivacyStatus = "private"
		video.Status.PublishAt = upload.PublishAt.UTC().Format(time.RFC3339)
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	call.NotifySubscribers(false)
	response, err := call.Media(file).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}
	return response.Id, nil
}

// AddToPlaylist appends videoID to playlistID
func (m *Service) AddToPlaylist(ctx context.Context, service *youtube.Service, playlistID, videoID string) error {
	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}
	if _, err := service.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to add video to playlist: %w", err)
	}
	return nil
}

// ShortTitle trims a title to YouTube's limit and tags it as a short
func ShortTitle(title string) string {
	title = strings.TrimSpace(title)
	const suffix = " #shorts"
	if !strings.Contains(strings.ToLower(title), "#shorts") {
		title += suffix
	}
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen])
	}
	return title
}

// cleanTag strips a leading '#', spaces and common accents, lowercased
func cleanTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#")))
	r := strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n", "ü", "u")
	return r.Replace(tag)
}

// CleanTags normalises, dedupes and bounds tags for the API
func CleanTags(tags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tag := range tags {
		c := cleanTag(tag)
		if c == "" || len([]rune(c)) > maxTagLen || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == maxTags {
			break
		}
	}
	return out
}
