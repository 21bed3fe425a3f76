package printing

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Supported download platforms. Anything else falls back to PlatformWindows.
const (
	PlatformWindows = "windows"
	PlatformLinux   = "linux"
	PlatformDarwin  = "darwin"
)

// BundleConfig is embedded in the archive as config.json and is everything
// the installed agent needs to start polling.
type BundleConfig struct {
	APIBaseURL string `json:"api_base_url"`
	AgentID    string `json:"agent_id"`
	AgentKey   string `json:"agent_key"`
	CompanyID  string `json:"company_id"`
	AgentName  string `json:"agent_name"`
	Port       int    `json:"port"`
}

// Bundler assembles per-agent installer archives: a platform binary from the
// artifact directory plus a generated config.json carrying the credentials.
type Bundler struct {
	artifactDir string
}

func NewBundler(artifactDir string) *Bundler {
	return &Bundler{artifactDir: artifactDir}
}

func NormalizePlatform(platform string) string {
	switch strings.ToLower(platform) {
	case PlatformLinux:
		return PlatformLinux
	case PlatformDarwin, "macos", "mac":
		return PlatformDarwin
	default:
		return PlatformWindows
	}
}

func binaryName(platform string) string {
	if platform == PlatformWindows {
		return "renthus-agent.exe"
	}
	return "renthus-agent"
}

// HasArtifact reports whether a prebuilt binary exists for the platform.
// Callers check this before spending anything single-use on a download.
func (b *Bundler) HasArtifact(platform string) bool {
	platform = NormalizePlatform(platform)
	info, err := os.Stat(filepath.Join(b.artifactDir, platform, binaryName(platform)))
	return err == nil && info.Mode().IsRegular()
}

// Build returns the archive bytes and the filename the client should save it
// as. The binary entry keeps the executable bit on unix platforms.
func (b *Bundler) Build(platform string, cfg BundleConfig) ([]byte, string, error) {
	platform = NormalizePlatform(platform)

	binPath := filepath.Join(b.artifactDir, platform, binaryName(platform))
	binData, err := os.ReadFile(binPath)
	if err != nil {
		return nil, "", fmt.Errorf("read agent binary for %s: %w", platform, err)
	}

	cfgData, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("marshal bundle config: %w", err)
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	now := time.Now().UTC()

	binHeader := &zip.FileHeader{Name: binaryName(platform), Method: zip.Deflate, Modified: now}
	binHeader.SetMode(0o755)
	entry, err := writer.CreateHeader(binHeader)
	if err != nil {
		return nil, "", fmt.Errorf("add binary entry: %w", err)
	}
	if _, err := entry.Write(binData); err != nil {
		return nil, "", fmt.Errorf("write binary entry: %w", err)
	}

	cfgHeader := &zip.FileHeader{Name: "config.json", Method: zip.Deflate, Modified: now}
	cfgHeader.SetMode(0o600)
	entry, err = writer.CreateHeader(cfgHeader)
	if err != nil {
		return nil, "", fmt.Errorf("add config entry: %w", err)
	}
	if _, err := entry.Write(cfgData); err != nil {
		return nil, "", fmt.Errorf("write config entry: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize bundle: %w", err)
	}

	return buf.Bytes(), fmt.Sprintf("renthus-agent-%s.zip", platform), nil
}
