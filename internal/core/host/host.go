package host

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

const userTypePrefix = "android.os.usertype."

// Host answers the device and package questions a report header needs.
type Host interface {
	// Fingerprint is the OS build fingerprint.
	Fingerprint() string
	// UserType is the current user's type, empty for the system user.
	UserType() string
	BootloaderUnlocked() bool
	DevOptionsEnabled() bool
	// AppLabel returns a display label for pkg, falling back to pkg itself.
	AppLabel(pkg string) string
	// InstallerPackage returns the package that installed pkg, if known.
	InstallerPackage(pkg string) (string, bool)
}

// PackageInfo describes one installed package.
type PackageInfo struct {
	Label     string `yaml:"label"`
	Installer string `yaml:"installer"`
}

// Config is the on-disk description of the host.
type Config struct {
	Fingerprint        string                 `yaml:"fingerprint"`
	UserType           string                 `yaml:"user_type"`
	BootloaderUnlocked bool                   `yaml:"bootloader_unlocked"`
	DevOptionsEnabled  bool                   `yaml:"dev_options_enabled"`
	Packages           map[string]PackageInfo `yaml:"packages"`
}

// DefaultConfig describes the machine we run on with no extra knowledge.
func DefaultConfig() *Config {
	return &Config{
		Fingerprint: runtime.GOOS + "/" + runtime.GOARCH,
		Packages:    make(map[string]PackageInfo),
	}
}

// LoadConfig reads a YAML host description; an empty path yields DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read host config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse host config %s: %w", path, err)
	}
	if cfg.Packages == nil {
		cfg.Packages = make(map[string]PackageInfo)
	}
	return cfg, nil
}

// Static is a Host backed by a fixed Config.
type Static struct {
	cfg *Config
}

func New(cfg *Config) *Static {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Static{cfg: cfg}
}

func (s *Static) Fingerprint() string { return s.cfg.Fingerprint }

func (s *Static) UserType() string {
	userType := strings.TrimPrefix(s.cfg.UserType, userTypePrefix)
	return strings.ToLower(userType)
}

func (s *Static) BootloaderUnlocked() bool { return s.cfg.BootloaderUnlocked }

func (s *Static) DevOptionsEnabled() bool { return s.cfg.DevOptionsEnabled }

func (s *Static) AppLabel(pkg string) string {
	if info, ok := s.cfg.Packages[pkg]; ok && info.Label != "" {
		return info.Label
	}
	return pkg
}

func (s *Static) InstallerPackage(pkg string) (string, bool) {
	info, ok := s.cfg.Packages[pkg]
	if !ok || info.Installer == "" {
		return "", false
	}
	return info.Installer, true
}
