package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	Audit    AuditConfig    `koanf:"audit"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	// ReservedSubdomains are host labels that never resolve to a tenant
	// (e.g. "api.opsapi.io" is the platform itself, not a namespace).
	ReservedSubdomains []string `koanf:"reserved_subdomains"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

type DatabaseConfig struct {
	URL            string `koanf:"url"`
	MigrationsPath string `koanf:"migrations_path"`
	MaxConns       int    `koanf:"max_conns"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type AuthConfig struct {
	JWT JWTConfig `koanf:"jwt"`
}

// JWTConfig configures token verification. This service verifies bearer
// tokens minted by the identity service; it never issues its own.
type JWTConfig struct {
	SigningKey string `koanf:"signingkey"`
	Issuer     string `koanf:"issuer"`
}

type AuditConfig struct {
	BufferSize    int `koanf:"buffer_size"`
	BatchSize     int `koanf:"batch_size"`
	FlushInterval int `koanf:"flush_interval_ms"`
}

func Load(configPaths ...string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	_ = k.Load(confmap.Provider(map[string]any{
		"server.host":                "0.0.0.0",
		"server.port":                8080,
		"server.reserved_subdomains": []string{"www", "api", "localhost", "dashboard"},
		"database.max_conns":         25,
		"database.migrations_path":   "migrations",
		"log.level":                  "info",
		"log.format":                 "json",
		"auth.jwt.issuer":            "opsapi",
		"audit.buffer_size":          4096,
		"audit.batch_size":           100,
		"audit.flush_interval_ms":    500,
	}, "."), nil)

	// YAML file (optional)
	for _, path := range configPaths {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// Config file is optional, skip if not found
			continue
		}
	}

	// Environment variables override everything
	// OPSAPI_SERVER_PORT -> server.port
	_ = k.Load(env.Provider("OPSAPI_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "OPSAPI_")),
			"_", ".",
		)
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
