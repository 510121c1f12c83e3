package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// UpdateDotenv rewrites the .env file at path with the given overrides,
// preserving unrelated lines and comments. Keys are namespaced with the
// panel's env prefix; missing keys are appended. Runtime settings changed
// through the API are persisted this way so they survive restarts.
func UpdateDotenv(path string, updates map[string]string) error {
	envUpdates := make(map[string]string, len(updates))
	for key, value := range updates {
		envUpdates[EnvPrefix+strings.ToUpper(key)] = value
	}

	var lines []string
	if data, err := os.ReadFile(path); err == nil {
		lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read .env: %w", err)
	}

	updated := make(map[string]bool, len(envUpdates))
	out := make([]string, 0, len(lines)+len(envUpdates))
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, "#") || !strings.Contains(line, "=") {
			out = append(out, line)
			continue
		}
		key := strings.TrimSpace(strings.SplitN(line, "=", 2)[0])
		if value, ok := envUpdates[key]; ok {
			out = append(out, key+"="+value)
			updated[key] = true
		} else {
			out = append(out, line)
		}
	}

	missing := make([]string, 0, len(envUpdates))
	for key := range envUpdates {
		if !updated[key] {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	for _, key := range missing {
		out = append(out, key+"="+envUpdates[key])
	}

	content := strings.Join(out, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write .env: %w", err)
	}
	return nil
}

// FormatEnvValue renders a typed setting for the .env file.
func FormatEnvValue(value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
	default:
		return fmt.Sprintf("%v", v)
	}
}
