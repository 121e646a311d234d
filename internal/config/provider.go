// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
	// ProjectDir is searched for a .cppx.toml override file. Empty skips it.
	ProjectDir string
	// Fs is the filesystem config files are read from. Nil means the OS filesystem.
	Fs afero.Fs
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct {
	logger *log.Logger
}

// NewProvider creates a configuration provider. A nil logger disables
// reporting of the files that were read.
func NewProvider(logger *log.Logger) Provider {
	return &fileProvider{logger: logger}
}

// Load reads configuration from the requested sources.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, sources, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	if p.logger != nil {
		if len(sources) == 0 {
			p.logger.Debug("Config: using built-in defaults")
		}
		for _, src := range sources {
			p.logger.Debug("Config: loaded", "file", src)
		}
	}

	return cfg, nil
}
