package youtube

import (
	"context"
	"time"

	"google.golang.org/api/youtube/v3"
)

// YouTubeService defines the YouTube operations used to publish shorts
type YouTubeService interface {
	// InitializeYouTubeService creates an authorized YouTube client
	InitializeYouTubeService(ctx context.Context, credentialsPath string) (*youtube.Service, error)

	// UploadVideo uploads one video and returns its id
	UploadVideo(ctx context.Context, service *youtube.Service, upload VideoUpload) (string, error)

	// AddToPlaylist appends a video to a playlist
	AddToPlaylist(ctx context.Context, service *youtube.Service, playlistID, videoID string) error
}

// VideoUpload describes one short to publish
type VideoUpload struct {
	FilePath      string
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	PrivacyStatus string    // private, unlisted or public
	PublishAt     time.Time // zero publishes according to PrivacyStatus
}
