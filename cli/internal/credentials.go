package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/preventix/preventix/internal/client"
)

// FileStore implements client.CredentialStore using a per-context JSON file
// under ~/.config/preventix. Files are written with owner-only permissions.
type FileStore struct {
	path string
}

// NewFileStore creates a credential store bound to the current context
func NewFileStore() (*FileStore, error) {
	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

// Load returns the stored credentials, or client.ErrNoCredentials
func (f *FileStore) Load() (*client.Credentials, error) {
	slog.Debug("loading credentials from file",
		slog.String("component", "cli-creds"),
		slog.String("path", f.path))

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, client.ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds client.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return &creds, nil
}

// Save writes the credentials to disk, replacing any previous set
func (f *FileStore) Save(creds *client.Credentials) error {
	// Ensure directory exists
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	// Write with restricted permissions (read/write for owner only)
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	slog.Debug("credentials saved", slog.String("component", "cli-creds"))
	return nil
}

// Clear removes the credentials file
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// credentialsPath returns the path to the credentials file for the current context
func credentialsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// Load config to get current context
	config, err := LoadConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	// Use context-specific credentials file
	configDir := filepath.Join(homeDir, ".config", "preventix")
	filename := fmt.Sprintf("credentials-%s.json", config.CurrentContext)
	return filepath.Join(configDir, filename), nil
}

// extractJWTExpiry decodes a JWT and extracts the expiration time
func extractJWTExpiry(token string) (time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid JWT format")
	}

	// Decode the payload (second part)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, err
	}

	// Parse the JSON payload
	var claims map[string]interface{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, err
	}

	// Extract exp claim
	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, fmt.Errorf("exp claim not found or invalid")
	}

	return time.Unix(int64(exp), 0), nil
}
