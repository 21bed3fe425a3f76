package printing

import "time"

// Config drives download-token issuance and installer bundling.
type Config struct {
	// BaseURL is the public origin used when composing download URLs.
	BaseURL string `mapstructure:"base_url"`
	// EncryptionKey is the base64-encoded 32-byte AES key for the escrow.
	EncryptionKey string `mapstructure:"encryption_key"`
	// TokenTTLMinutes bounds download-token validity. Zero means the default.
	TokenTTLMinutes int `mapstructure:"token_ttl_minutes"`
	// DistDir holds the per-platform agent binaries to bundle.
	DistDir string `mapstructure:"dist_dir"`
	// AgentPort is the local port written into the bundled config.json.
	AgentPort int `mapstructure:"agent_port"`
}

func (c Config) TokenTTL() time.Duration {
	if c.TokenTTLMinutes <= 0 {
		return DefaultTokenTTL
	}
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}
