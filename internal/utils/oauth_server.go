package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/oauth2"
)

// ConfigDirName is the per-user directory holding OAuth tokens
const ConfigDirName = ".chapterize"

// TokenStorage handles storing and retrieving OAuth tokens
type TokenStorage struct {
	configDir string
}

// NewTokenStorage stores tokens under ~/.chapterize
func NewTokenStorage() (*TokenStorage, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewTokenStorageAt(filepath.Join(homeDir, ConfigDirName))
}

// NewTokenStorageAt stores tokens under dir
func NewTokenStorageAt(dir string) (*TokenStorage, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return &TokenStorage{configDir: dir}, nil
}

func (s *TokenStorage) tokenPath(service string) string {
	return filepath.Join(s.configDir, fmt.Sprintf("%s_token.json", service))
}

// SaveToken saves the OAuth token to disk
func (s *TokenStorage) SaveToken(service string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(s.tokenPath(service), data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// LoadToken loads the OAuth token from disk. A missing token is (nil, nil).
func (s *TokenStorage) LoadToken(service string) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.tokenPath(service))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// OAuthCallbackServer receives the authorization code of a browser consent
type OAuthCallbackServer struct {
	codeChan chan string
	server   *http.Server
	wg       sync.WaitGroup
}

// NewOAuthCallbackServer creates a new OAuth callback server
func NewOAuthCallbackServer() *OAuthCallbackServer {
	return &OAuthCallbackServer{
		codeChan: make(chan string, 1),
	}
}

// Handler returns the callback handler, exposed for tests
func (s *OAuthCallbackServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleCallback)
	return mux
}

// Start serves the callback on port in the background
func (s *OAuthCallbackServer) Start(port int) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			LogError("Callback server error: %v", err)
		}
	}()
	return nil
}

const callbackPage = `<html><head><title>Authorization Successful</title></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding-top: 4rem">
<h1>Authorization Successful</h1>
<p>You can close this window and return to chapterize.</p>
</body></html>`

func (s *OAuthCallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "No authorization code received", http.StatusBadRequest)
		return
	}

	select {
	case s.codeChan <- code:
	default:
		// a code is already pending; browsers sometimes retry the redirect
	}

	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, callbackPage); err != nil {
		LogWarning("Failed to write response: %v", err)
	}
}

// WaitForCode blocks until an authorization code arrives
func (s *OAuthCallbackServer) WaitForCode() string {
	return <-s.codeChan
}

// Stop stops the callback server
func (s *OAuthCallbackServer) Stop() error {
	if s.server != nil {
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("failed to stop callback server: %w", err)
		}
		s.wg.Wait()
	}
	return nil
}

// OpenURL opens url in the default browser
func OpenURL(url string) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("xdg-open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	default:
		return fmt.Errorf("cannot open URL %s on this platform", url)
	}
}
