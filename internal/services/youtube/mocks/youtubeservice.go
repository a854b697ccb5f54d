package mocks

import (
	"context"

	youtubesvc "github.com/gnzdotmx/chapterize/internal/services/youtube"
	"github.com/stretchr/testify/mock"
	"google.golang.org/api/youtube/v3"
)

// MockYouTubeService is a testify mock of youtube.YouTubeService
type MockYouTubeService struct {
	mock.Mock
}

// NewMockYouTubeService creates a mock that asserts its expectations on cleanup
func NewMockYouTubeService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockYouTubeService {
	m := &MockYouTubeService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// InitializeYouTubeService provides a mock function
func (m *MockYouTubeService) InitializeYouTubeService(ctx context.Context, credentialsPath string) (*youtube.Service, error) {
	args := m.Called(ctx, credentialsPath)
	var svc *youtube.Service
	if s := args.Get(0); s != nil {
		svc = s.(*youtube.Service)
	}
	return svc, args.Error(1)
}

// UploadVideo provides a mock function
func (m *MockYouTubeService) UploadVideo(ctx context.Context, service *youtube.Service, upload youtubesvc.VideoUpload) (string, error) {
	args := m.Called(ctx, service, upload)
	return args.String(0), args.Error(1)
}

// AddToPlaylist provides a mock function
func (m *MockYouTubeService) AddToPlaylist(ctx context.Context, service *youtube.Service, playlistID, videoID string) error {
	args := m.Called(ctx, service, playlistID, videoID)
	return args.Error(0)
}

var _ youtubesvc.YouTubeService = (*MockYouTubeService)(nil)
