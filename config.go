package osipack

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the validated, defaulted project configuration.
//
// It is decoded from an osiris.toml file. The packaging pipelines only
// read it; every field is fixed once Validate has run.
//
// A project declares one application plus one table per platform it can be
// packaged for. A single build always targets exactly one platform.
type Config struct {
	Application ApplicationConfig `toml:"application"`
	Android     *AndroidConfig    `toml:"android,omitempty"`
	Macos       *MacosConfig      `toml:"macos,omitempty"`
}

// ApplicationConfig identifies the application across all platforms.
type ApplicationConfig struct {
	// Id is the short symbolic application identifier. It names the build
	// directory and the bundle executable, so it must be usable as a
	// single path component.
	Id string `toml:"id"`

	// Name is the human-readable application name.
	Name string `toml:"name"`

	// Package is the name of the application's own Cargo package. It
	// decides which build artifact counts as the primary executable.
	Package string `toml:"package"`
}

// IdSymbol returns the application id with characters unsuitable for
// identifiers replaced, for use in generated code and file names.
func (a *ApplicationConfig) IdSymbol() string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return '_'
		}
		return r
	}, a.Id)
}

// AndroidConfig carries the Android platform table.
type AndroidConfig struct {
	// ApplicationId is the reverse-DNS package name embedded in the
	// manifest (for example "com.example.app").
	ApplicationId string `toml:"application-id"`

	// Namespace for generated resource bindings; defaults to ApplicationId.
	Namespace string `toml:"namespace"`

	// SdkRoot overrides $ANDROID_HOME when non-empty.
	SdkRoot string `toml:"sdk-root"`

	// BuildTools pins a build-tools version; empty selects the newest.
	BuildTools string `toml:"build-tools"`

	MinSdk      uint32   `toml:"min-sdk"`
	TargetSdk   uint32   `toml:"target-sdk"`
	VersionCode uint32   `toml:"version-code"`
	VersionName string   `toml:"version-name"`
	Abis        []string `toml:"abis"`

	// Keystore enables the signing stage when non-empty.
	Keystore string `toml:"keystore"`
}

// MacosConfig carries the macOS platform table.
type MacosConfig struct {
	// BundleId is the reverse-DNS bundle identifier.
	BundleId string `toml:"bundle-id"`

	VersionCode uint32   `toml:"version-code"`
	VersionName string   `toml:"version-name"`
	Category    string   `toml:"category"`
	MinOs       string   `toml:"min-os"`
	Abis        []string `toml:"abis"`

	// SigningIdentity enables ad-hoc or identity codesigning after
	// assembly when non-empty ("-" means ad-hoc).
	SigningIdentity string `toml:"signing-identity"`

	// BinaryPlist converts Info.plist to binary form with plutil.
	BinaryPlist bool `toml:"binary-plist"`
}

// LoadConfig reads and validates the project configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read configuration %q: %w", path, err)
	}
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse configuration %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks required fields and fills defaults. It is called by
// LoadConfig and must be called once on hand-built configurations before
// a pipeline runs.
func (c *Config) Validate() error {
	if c.Application.Id == "" {
		return fmt.Errorf("application.id is required")
	}
	if strings.ContainsAny(c.Application.Id, "/\\") {
		return fmt.Errorf("application.id %q must be a single path component", c.Application.Id)
	}
	if c.Application.Name == "" {
		c.Application.Name = c.Application.Id
	}
	if c.Application.Package == "" {
		c.Application.Package = c.Application.Id
	}

	if a := c.Android; a != nil {
		if a.ApplicationId == "" {
			return fmt.Errorf("android.application-id is required")
		}
		if a.Namespace == "" {
			a.Namespace = a.ApplicationId
		}
		if a.MinSdk == 0 {
			a.MinSdk = 31
		}
		if a.TargetSdk == 0 {
			a.TargetSdk = a.MinSdk
		}
		if a.VersionCode == 0 {
			a.VersionCode = 1
		}
		if a.VersionName == "" {
			a.VersionName = fmt.Sprintf("0.1.%d", a.VersionCode)
		}
		if len(a.Abis) == 0 {
			a.Abis = []string{"arm64-v8a"}
		}
	}

	if m := c.Macos; m != nil {
		if m.BundleId == "" {
			return fmt.Errorf("macos.bundle-id is required")
		}
		if m.VersionCode == 0 {
			m.VersionCode = 1
		}
		if m.VersionName == "" {
			m.VersionName = fmt.Sprintf("0.1.%d", m.VersionCode)
		}
		if m.Category == "" {
			m.Category = "public.app-category.utilities"
		}
		if m.MinOs == "" {
			m.MinOs = "11.0"
		}
		if len(m.Abis) == 0 {
			m.Abis = []string{"native"}
		}
	}

	return nil
}
