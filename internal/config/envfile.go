package config

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// envFileCandidates lists dotenv files in load order: NWPIAGENT_ENV_FILE,
// .env in the working directory, then the state dir.
func envFileCandidates() []string {
	var paths []string
	if explicit := strings.TrimSpace(os.Getenv("NWPIAGENT_ENV_FILE")); explicit != "" {
		paths = append(paths, explicit)
	}
	paths = append(paths, ".env")
	if home, err := resolveHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ConfigDir, "env"), filepath.Join(home, ConfigDir, ".env"))
	}

	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// LoadEnvFileCandidates applies every candidate dotenv file that exists.
// Variables already in the process environment are never overridden, so
// the first file to define a key wins.
func LoadEnvFileCandidates() {
	for _, p := range envFileCandidates() {
		n, err := loadEnvFile(p)
		if err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("Env file unreadable", "path", p, "error", err)
			}
			continue
		}
		slog.Debug("Env file loaded", "path", p, "set", n)
	}
}

// loadEnvFile reads dotenv syntax: optional "export", # comments, single
// quotes taken literally, double quotes with \n \t \" \\ escapes, and ${VAR}
// expansion outside single quotes. It returns how many variables it set.
func loadEnvFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	set := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, val, ok := parseEnvLine(sc.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, val); err == nil {
			set++
		}
	}
	return set, sc.Err()
}

func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	key, raw, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	return key, parseEnvValue(strings.TrimSpace(raw)), true
}

func parseEnvValue(raw string) string {
	if raw == "" {
		return ""
	}
	switch raw[0] {
	case '\'':
		if end := strings.IndexByte(raw[1:], '\''); end >= 0 {
			return raw[1 : end+1]
		}
	case '"':
		if val, ok := unquoteDouble(raw[1:]); ok {
			return expandEnvRefs(val)
		}
	}
	// Unquoted: a # preceded by whitespace starts a comment.
	for i := 1; i < len(raw); i++ {
		if raw[i] == '#' && (raw[i-1] == ' ' || raw[i-1] == '\t') {
			raw = strings.TrimSpace(raw[:i])
			break
		}
	}
	return expandEnvRefs(raw)
}

// unquoteDouble reads up to the closing quote of s, the text after an
// opening double quote.
func unquoteDouble(s string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			return b.String(), true
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"', '\\':
				b.WriteByte(s[i])
			default:
				b.WriteByte('\\')
				b.WriteByte(s[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", false
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnvRefs(v string) string {
	return envRefPattern.ReplaceAllStringFunc(v, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}
