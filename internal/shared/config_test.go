package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Backend.BaseURL != "http://127.0.0.1:8000" {
			t.Errorf("expected base URL http://127.0.0.1:8000, got %s", config.Backend.BaseURL)
		}
		if config.Backend.APIPrefix != "/simsalabim/" {
			t.Errorf("expected api prefix /simsalabim/, got %s", config.Backend.APIPrefix)
		}
		if config.Gallery.PageSize != 6 {
			t.Errorf("expected page size 6, got %d", config.Gallery.PageSize)
		}
		if config.Player.EstimatedDurationSeconds != 120 {
			t.Errorf("expected estimated duration 120, got %d", config.Player.EstimatedDurationSeconds)
		}
		if config.Backend.Timeout() != 0 {
			t.Errorf("expected no timeout by default, got %v", config.Backend.Timeout())
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[backend]
base_url = "http://localhost:9000"
timeout_seconds = 30

[gallery]
page_size = 10

[player]
command = "fluidsynth"
args = ["-a", "alsa"]
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Backend.BaseURL != "http://localhost:9000" {
			t.Errorf("expected base URL override, got %s", config.Backend.BaseURL)
		}
		if config.Backend.Timeout() != 30*time.Second {
			t.Errorf("expected 30s timeout, got %v", config.Backend.Timeout())
		}
		if config.Gallery.PageSize != 10 {
			t.Errorf("expected page size 10, got %d", config.Gallery.PageSize)
		}
		if config.Player.Command != "fluidsynth" || len(config.Player.Args) != 2 {
			t.Errorf("unexpected player config: %+v", config.Player)
		}
		if config.Backend.APIPrefix != "/simsalabim/" {
			t.Errorf("missing keys should keep defaults, got api prefix %q", config.Backend.APIPrefix)
		}
	})

	t.Run("LoadConfig Rejects Invalid Values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[gallery]\npage_size = 0\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		in   string
		want string
	}{
		{"debug", "debug"},
		{"WARN", "warn"},
		{"error", "error"},
		{"", "info"},
		{"verbose", "info"},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLogLevel(tt.in).String(); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	t.Run("server message is surfaced", func(t *testing.T) {
		err := &ResponseError{Endpoint: "upload-zip/", StatusCode: 400, Message: "Invalid ZIP file!"}
		if got := UserMessage(err); got != "Error: Invalid ZIP file!" {
			t.Errorf("unexpected message %q", got)
		}
	})

	t.Run("transport failure gets generic hint", func(t *testing.T) {
		if got := UserMessage(ErrNetwork); got != "An unexpected error occurred. Please try again." {
			t.Errorf("unexpected message %q", got)
		}
	})

	t.Run("missing file names the folder", func(t *testing.T) {
		err := &MissingFileError{Kind: "audio archive", Folder: "audio"}
		if got := UserMessage(err); got != "please select the audio archive file to upload to audio" {
			t.Errorf("unexpected message %q", got)
		}
		if !errors.Is(err, ErrValidation) {
			t.Error("missing file should be a validation error")
		}
	})

	t.Run("nil is empty", func(t *testing.T) {
		if got := UserMessage(nil); got != "" {
			t.Errorf("expected empty message, got %q", got)
		}
	})
}
