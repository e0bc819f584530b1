package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

var channelNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateDeep performs comprehensive validation of the configuration including
// file accessibility and relay settings. The configPath argument specifies the
// config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateRelay(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Relay.Enabled && c.Relay.Retention < c.Relay.SweepInterval {
		warnings = append(warnings, ValidationWarning{
			Category: "Relay",
			Item:     "retention",
			Message:  "retention is shorter than sweep_interval; messages may outlive it",
		})
	}

	if c.Store.Backend == BackendJSON && c.Database != DefaultConfig().Database {
		warnings = append(warnings, ValidationWarning{
			Category: "Database",
			Message:  "database settings are ignored by the json backend",
		})
	}

	if !c.Relay.Enabled {
		warnings = append(warnings, ValidationWarning{
			Category: "Relay",
			Message:  "relay disabled; deletes made in other processes will not be seen until refresh",
		})
	}

	return warnings
}

// validateFileAccess checks config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateRelay() error {
	if !c.Relay.Enabled {
		return nil
	}

	var errs criterio.FieldErrorsBuilder

	if !channelNameRe.MatchString(c.Relay.Channel) {
		errs = errs.Append("relay.channel", fmt.Errorf("invalid channel name %q", c.Relay.Channel))
	}
	if c.Relay.Retention < time.Second {
		errs = errs.Append("relay.retention", fmt.Errorf("must be at least 1s, got %s", c.Relay.Retention))
	}
	if c.Relay.SweepInterval < time.Second {
		errs = errs.Append("relay.sweep_interval", fmt.Errorf("must be at least 1s, got %s", c.Relay.SweepInterval))
	}

	return errs.ToError()
}
