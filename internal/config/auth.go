package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvAuthEnabled    = "ACREWISE_AUTH_ENABLED"
	EnvAuthIssuer     = "ACREWISE_AUTH_ISSUER"
	EnvAuthAudience   = "ACREWISE_AUTH_AUDIENCE"
	EnvAuthOwnerClaim = "ACREWISE_AUTH_OWNER_CLAIM"
	EnvAuthDevOwner   = "ACREWISE_AUTH_DEV_OWNER"
)

// AuthConfig holds OIDC token verification settings. When disabled, every
// request is attributed to DevOwner, which suits local development only.
type AuthConfig struct {
	Enabled    bool   `toml:"enabled"`
	Issuer     string `toml:"issuer"`
	Audience   string `toml:"audience"`
	OwnerClaim string `toml:"owner_claim"`
	DevOwner   string `toml:"dev_owner"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AuthConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Enabled merges when true
// since TOML cannot distinguish false from unset.
func (c *AuthConfig) Merge(overlay *AuthConfig) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.Audience != "" {
		c.Audience = overlay.Audience
	}
	if overlay.OwnerClaim != "" {
		c.OwnerClaim = overlay.OwnerClaim
	}
	if overlay.DevOwner != "" {
		c.DevOwner = overlay.DevOwner
	}
}

func (c *AuthConfig) loadDefaults() {
	if c.OwnerClaim == "" {
		c.OwnerClaim = "org_id"
	}
	if c.DevOwner == "" {
		c.DevOwner = "dev"
	}
}

func (c *AuthConfig) loadEnv() {
	if v := os.Getenv(EnvAuthEnabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Enabled = enabled
		}
	}
	if v := os.Getenv(EnvAuthIssuer); v != "" {
		c.Issuer = v
	}
	if v := os.Getenv(EnvAuthAudience); v != "" {
		c.Audience = v
	}
	if v := os.Getenv(EnvAuthOwnerClaim); v != "" {
		c.OwnerClaim = v
	}
	if v := os.Getenv(EnvAuthDevOwner); v != "" {
		c.DevOwner = v
	}
}

func (c *AuthConfig) validate() error {
	if c.Enabled {
		if c.Issuer == "" {
			return fmt.Errorf("issuer is required when auth is enabled")
		}
		if c.Audience == "" {
			return fmt.Errorf("audience is required when auth is enabled")
		}
	}
	return nil
}
