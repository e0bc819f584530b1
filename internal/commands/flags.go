package commands

import (
	"os"
	"path/filepath"

	"github.com/hay-kot/postsync/internal/core/config"
)

// Flags are the global options shared by every command.
type Flags struct {
	LogLevel string
	// LogFile is "-" for human-readable logs on stderr.
	LogFile    string
	ConfigPath string
	DataDir    string

	// Config is loaded in the Before hook.
	Config *config.Config
}

// xdgDir returns $env/postsync, or ~/fallback/postsync when env is unset.
func xdgDir(env string, fallback ...string) string {
	base := os.Getenv(env)
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(append([]string{home}, fallback...)...)
	}
	return filepath.Join(base, "postsync")
}

// DefaultConfigPath is $XDG_CONFIG_HOME/postsync/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "config.yaml")
}

// DefaultDataDir is $XDG_DATA_HOME/postsync. It holds the database or posts
// file, the relay channels and the log.
func DefaultDataDir() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// LogPath resolves the --log-file value: empty means a file in the data
// directory, "-" means stderr (returned as "").
func (f *Flags) LogPath() string {
	switch f.LogFile {
	case "-":
		return ""
	case "":
		return filepath.Join(f.DataDir, "postsync.log")
	default:
		return f.LogFile
	}
}
