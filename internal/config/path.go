package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands environment variables in path and resolves a leading ~
// to the home directory. The path is returned unchanged when the home
// directory cannot be determined.
func ExpandPath(path string) string {
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
