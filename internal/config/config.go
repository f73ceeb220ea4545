package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level blockgw configuration file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Gateway GatewayConfig `yaml:"gateway"`
	Audit   AuditConfig   `yaml:"audit"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	MaxBodySize     int64    `yaml:"max_body_size"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	CORSOrigins     []string `yaml:"cors_origins"`
	RatePerMinute   int      `yaml:"rate_per_minute"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuditConfig selects the audit-log store backend. Driver is one of
// "sqlite", "postgres", "mysql". An empty sqlite DSN uses an in-memory
// database.
type AuditConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// GatewayConfig holds the request-orchestration settings: collaborator
// endpoints, header naming, traffic-origin classification rules, the static
// permission matrix, the reverse-proxy port map, and the same-host shortcut.
// It is loaded once at startup and never mutated at runtime.
type GatewayConfig struct {
	RootBlock   RootBlockConfig  `yaml:"root_block"`
	Services    ServiceEndpoints `yaml:"services"`
	Headers     HeaderConfig     `yaml:"headers"`
	Origin      OriginRules      `yaml:"origin"`
	Permissions PermissionMatrix `yaml:"permissions"`
	Ports       map[string]int   `yaml:"ports"`
	Shortcut    ShortcutConfig   `yaml:"shortcut"`
	Proxy       ProxyConfig      `yaml:"proxy"`
}

// RootBlockConfig describes the well-known root block, whose catalog is
// synthesized locally instead of being fetched from the catalog service.
type RootBlockConfig struct {
	Code   int    `yaml:"code"`
	Name   string `yaml:"name"`
	Domain string `yaml:"domain"`
}

// ServiceEndpoints are the collaborator base URLs. CatalogURL is a template
// with {root} and {code} placeholders.
type ServiceEndpoints struct {
	OperatorSessionURL string `yaml:"operator_session_url"`
	CatalogURL         string `yaml:"catalog_url"`
	AccessTokenURL     string `yaml:"access_token_url"`
	CollateURL         string `yaml:"collate_url"`
}

// HeaderConfig names the identity-bearing headers and cookies.
type HeaderConfig struct {
	Session     string      `yaml:"session"`
	Token       string      `yaml:"token"`
	AccessToken string      `yaml:"access_token"`
	CSRF        string      `yaml:"csrf"`
	Cookies     CookieNames `yaml:"cookies"`
}

// CookieNames are the session cookie names checked in fixed priority order:
// personal first, then application key, then manager.
type CookieNames struct {
	Personal string `yaml:"personal"`
	App      string `yaml:"app"`
	Manager  string `yaml:"manager"`
	CSRF     string `yaml:"csrf"`
}

// HeaderRule matches one request header against a regular expression.
type HeaderRule struct {
	Header  string `yaml:"header"`
	Pattern string `yaml:"pattern"`
}

// OriginRules classify the traffic origin of a request carrying a session
// header. Each list is evaluated independently and in order.
type OriginRules struct {
	External      []HeaderRule `yaml:"external"`
	BetweenBlocks []HeaderRule `yaml:"between_blocks"`
	WithinBlock   []HeaderRule `yaml:"within_block"`
}

// PermissionMatrix is the static authorization table, keyed by permission
// bucket ("self" or a destination actor-type), then HTTP method, then
// operator type name, yielding an ordered list of allowed path patterns.
// Absence at any level means deny.
type PermissionMatrix map[string]map[string]map[string][]string

// ShortcutConfig controls the same-host routing shortcut: when the local
// host identifier (up to APIMarker) equals the destination domain (up to
// ServiceMarker), the call targets localhost on the local reverse-proxy port
// instead of crossing the network.
type ShortcutConfig struct {
	LocalHost     string `yaml:"local_host"`
	APIMarker     string `yaml:"api_marker"`
	ServiceMarker string `yaml:"service_marker"`
	LocalPort     int    `yaml:"local_port"`
	LocalPath     string `yaml:"local_path"`
}

// ProxyConfig holds route paths and request defaults for the orchestrator.
type ProxyConfig struct {
	ReversePath      string `yaml:"reverse_path"`
	DefaultFromPath  string `yaml:"default_from_path"`
	MaxSessionUnwrap int    `yaml:"max_session_unwrap"`
}

// Load reads and parses a YAML configuration file. Environment variables
// referenced as ${VAR_NAME} in the file are expanded before parsing.
// Unset fields keep their Default() values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Default returns a Config pre-filled with sensible defaults. The
// collaborator URLs and the permission matrix have no useful defaults and
// must come from the config file.
func Default() *Config {
	hostname, _ := os.Hostname()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxBodySize:     10 * 1024 * 1024,
			ShutdownTimeout: "30s",
			CORSOrigins:     []string{"*"},
			RatePerMinute:   600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Audit: AuditConfig{
			Driver: "sqlite",
		},
		Gateway: GatewayConfig{
			Headers: HeaderConfig{
				Session:     "session",
				Token:       "token",
				AccessToken: "access-token",
				CSRF:        "X-CSRF-Token",
				Cookies: CookieNames{
					Personal: "personal_key",
					App:      "app_key",
					Manager:  "manager_key",
					CSRF:     "csrf_token",
				},
			},
			Shortcut: ShortcutConfig{
				LocalHost:     hostname,
				APIMarker:     "-api",
				ServiceMarker: "-service",
				LocalPort:     3030,
				LocalPath:     "/gateway/reverse/api",
			},
			Proxy: ProxyConfig{
				ReversePath:      "/gateway/reverse/api",
				DefaultFromPath:  "/",
				MaxSessionUnwrap: 8,
			},
		},
	}
}

// WriteDefault writes the default configuration to a YAML file.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
