package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".modseek"

// Paths holds resolved filesystem paths for modseek data.
type Paths struct {
	Base   string // ~/.modseek
	Config string // ~/.modseek/config.yaml
	Logs   string // ~/.modseek/logs
	Tmp    string // ~/.modseek/tmp, downloaded artifacts awaiting delivery
}

// ResolvePaths computes all standard paths from the home directory.
// If MODSEEK_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("MODSEEK_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Logs:   filepath.Join(base, "logs"),
		Tmp:    filepath.Join(base, "tmp"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Logs, p.Tmp} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
