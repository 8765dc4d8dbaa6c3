package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".nwpiagent"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("NWPIAGENT_CONFIG")); explicit != "" {
		return expandHome(explicit)
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("NWPIAGENT_HOME")); h != "" {
		return expandHome(h)
	}
	return os.UserHomeDir()
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, p[1:]), nil
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Env files first so they can feed both the file substitution and the
	// envconfig overrides below.
	LoadEnvFileCandidates()

	path, err := ConfigPath()
	if err == nil {
		data, err := loadResolvedConfig(path)
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyLegacyEnv(cfg)

	if cfg.Paths.StateDir, err = expandHome(cfg.Paths.StateDir); err != nil {
		return nil, err
	}
	if cfg.Paths.SessionsDir == "" {
		cfg.Paths.SessionsDir = filepath.Join(cfg.Paths.StateDir, "sessions")
	}
	if cfg.Paths.TimelineDB == "" {
		cfg.Paths.TimelineDB = filepath.Join(cfg.Paths.StateDir, "timeline.db")
	}
	return cfg, nil
}

// applyEnv processes every group under its NWPIAGENT_ prefix.
func applyEnv(cfg *Config) error {
	groups := []struct {
		prefix string
		spec   any
	}{
		{"NWPIAGENT_PATHS", &cfg.Paths},
		{"NWPIAGENT_VMANAGE", &cfg.VManage},
		{"NWPIAGENT_MODEL", &cfg.Model},
		{"NWPIAGENT_OPENAI", &cfg.Providers.OpenAI},
		{"NWPIAGENT_GATEWAY", &cfg.Gateway},
		{"NWPIAGENT_SLACK", &cfg.Slack},
		{"NWPIAGENT_ALERTS", &cfg.Alerts},
		{"NWPIAGENT_AGENT", &cfg.Agent},
		{"NWPIAGENT_LOG", &cfg.Log},
	}
	for _, g := range groups {
		if err := envconfig.Process(g.prefix, g.spec); err != nil {
			return fmt.Errorf("env %s: %w", g.prefix, err)
		}
	}
	return nil
}

// applyLegacyEnv honours the unprefixed variables older deployments set in
// their .env files. Prefixed variables win.
func applyLegacyEnv(cfg *Config) {
	setIfEmpty := func(dst *string, prefixed, legacy string) {
		if _, ok := os.LookupEnv(prefixed); ok {
			return
		}
		if v, ok := os.LookupEnv(legacy); ok && v != "" {
			*dst = v
		}
	}
	setIfEmpty(&cfg.VManage.Host, "NWPIAGENT_VMANAGE_HOST", "VMANAGE_IP")
	setIfEmpty(&cfg.VManage.Port, "NWPIAGENT_VMANAGE_PORT", "VMANAGE_PORT")
	setIfEmpty(&cfg.VManage.Username, "NWPIAGENT_VMANAGE_USERNAME", "VMANAGE_USER")
	setIfEmpty(&cfg.VManage.Password, "NWPIAGENT_VMANAGE_PASSWORD", "VMANAGE_PASS")
	setIfEmpty(&cfg.Providers.OpenAI.APIKey, "NWPIAGENT_OPENAI_API_KEY", "OPENAI_API_KEY")
	setIfEmpty(&cfg.Gateway.Host, "NWPIAGENT_GATEWAY_HOST", "HOST_URL")

	if _, ok := os.LookupEnv("NWPIAGENT_GATEWAY_PORT"); !ok {
		if v := strings.TrimSpace(os.Getenv("LLM_HTTP_PORT")); v != "" {
			if port, err := strconv.Atoi(v); err == nil {
				cfg.Gateway.Port = port
			} else {
				slog.Warn("Ignoring invalid LLM_HTTP_PORT", "value", v)
			}
		}
	}
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureDir ensures a directory exists with proper permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// loadResolvedConfig reads path, follows $include entries and substitutes
// ${VAR} references in string values.
func loadResolvedConfig(path string) ([]byte, error) {
	obj, err := loadConfigObject(path, map[string]struct{}{})
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

func loadConfigObject(path string, visited map[string]struct{}) (map[string]any, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, seen := visited[absPath]; seen {
		return nil, fmt.Errorf("config include cycle detected at %s", absPath)
	}
	visited[absPath] = struct{}{}
	defer delete(visited, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", absPath, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	merged := map[string]any{}
	if inc, ok := raw["$include"]; ok {
		files, err := parseIncludes(inc)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if !filepath.IsAbs(f) {
				f = filepath.Join(filepath.Dir(absPath), f)
			}
			child, err := loadConfigObject(f, visited)
			if err != nil {
				return nil, err
			}
			deepMerge(merged, child)
		}
		delete(raw, "$include")
	}
	substituteEnvValues(raw)
	deepMerge(merged, raw)
	return merged, nil
}

func parseIncludes(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("$include entries must be strings")
			}
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("$include must be a string or array of strings")
	}
}

func deepMerge(dst, src map[string]any) {
	for key, val := range src {
		srcMap, ok := val.(map[string]any)
		if !ok {
			dst[key] = val
			continue
		}
		dstMap, ok := dst[key].(map[string]any)
		if !ok {
			dstMap = map[string]any{}
			dst[key] = dstMap
		}
		deepMerge(dstMap, srcMap)
	}
}

func substituteEnvValues(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = substituteEnvValues(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = substituteEnvValues(item)
		}
		return t
	case string:
		return envPattern.ReplaceAllStringFunc(t, func(match string) string {
			name := envPattern.FindStringSubmatch(match)[1]
			if value, ok := os.LookupEnv(name); ok {
				return value
			}
			return match
		})
	default:
		return v
	}
}
