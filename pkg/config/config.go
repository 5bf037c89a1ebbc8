package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
)

const (
	MainProviderName = "main_provider"
	BackProviderName = "back_provider"
)

// Plugin is the plugin configuration file. Admin commands edit Prompt and
// Whitelist and write the file back.
type Plugin struct {
	Whitelist    Whitelist `yaml:"whitelist_config"`
	Prefix       Prefix    `yaml:"prefix_config"`
	DefParams    DefParams `yaml:"def_params"`
	MainProvider Provider  `yaml:"main_provider"`
	BackProvider Provider  `yaml:"back_provider"`
	Retry        int       `yaml:"retry"`
	SaveImage    bool      `yaml:"save_image"`
	Network      Network   `yaml:"network_config"`
	Prompt       []string  `yaml:"prompt"`
}

type Whitelist struct {
	Enabled   bool     `yaml:"enabled"`
	Whitelist []string `yaml:"whitelist"`
}

type Prefix struct {
	CoexistEnabled bool     `yaml:"coexist_enabled"`
	PrefixList     []string `yaml:"prefix_list"`
}

type DefParams struct {
	MinImages    int    `yaml:"min_images"`
	MaxImages    int    `yaml:"max_images"`
	ReferImages  string `yaml:"refer_images"`
	ImageSize    string `yaml:"image_size"`
	AspectRatio  string `yaml:"aspect_ratio"`
	GoogleSearch bool   `yaml:"google_search"`
	TextResponse bool   `yaml:"text_response"`
}

type Provider struct {
	Enabled bool     `yaml:"enabled"`
	APIType string   `yaml:"api_type"`
	APIURL  string   `yaml:"api_url"`
	Model   string   `yaml:"model"`
	Key     []string `yaml:"key"`
	Stream  bool     `yaml:"stream"`
}

type Network struct {
	Proxy string `yaml:"proxy"`
	// Timeout is in seconds.
	Timeout int `yaml:"timeout"`
}

// Default returns the configuration used for keys missing from the file.
func Default() *Plugin {
	provider := Provider{
		APIType: domain.APITypeGemini,
		APIURL:  domain.DefaultAPIURL,
		Model:   domain.DefaultModel,
	}
	return &Plugin{
		DefParams: DefParams{
			MinImages:   1,
			MaxImages:   3,
			ImageSize:   "1K",
			AspectRatio: domain.AspectRatioDefault,
		},
		MainProvider: provider,
		BackProvider: provider,
		Retry:        2,
		Network:      Network{Timeout: 600},
	}
}

// Providers lists the enabled providers, main first. A back provider without
// keys borrows a copy of the main provider's keys.
func (p *Plugin) Providers() []domain.Provider {
	var providers []domain.Provider
	if p.MainProvider.Enabled {
		providers = append(providers, p.MainProvider.toDomain(MainProviderName, nil))
	}
	if p.BackProvider.Enabled {
		providers = append(providers, p.BackProvider.toDomain(BackProviderName, p.MainProvider.Key))
	}
	return providers
}

func (p Provider) toDomain(name string, fallbackKeys []string) domain.Provider {
	keys := p.Key
	if len(keys) == 0 {
		keys = fallbackKeys
	}
	return domain.Provider{
		Name:    name,
		APIType: p.APIType,
		APIURL:  p.APIURL,
		Model:   p.Model,
		Keys:    slices.Clone(keys),
		Stream:  p.Stream,
	}
}

func (p *Plugin) Defaults() domain.Defaults {
	d := p.DefParams
	return domain.Defaults{
		MinImages:    d.MinImages,
		MaxImages:    d.MaxImages,
		ReferImages:  d.ReferImages,
		ImageSize:    d.ImageSize,
		AspectRatio:  d.AspectRatio,
		GoogleSearch: d.GoogleSearch,
		TextResponse: d.TextResponse,
	}
}

func (p *Plugin) Timeout() time.Duration {
	return time.Duration(p.Network.Timeout) * time.Second
}

// Clone returns a deep copy.
func (p *Plugin) Clone() *Plugin {
	c := *p
	c.Whitelist.Whitelist = slices.Clone(p.Whitelist.Whitelist)
	c.Prefix.PrefixList = slices.Clone(p.Prefix.PrefixList)
	c.MainProvider.Key = slices.Clone(p.MainProvider.Key)
	c.BackProvider.Key = slices.Clone(p.BackProvider.Key)
	c.Prompt = slices.Clone(p.Prompt)
	return &c
}

// File reads and writes the plugin configuration at Path.
type File struct {
	Path string
}

func NewFile(path string) *File {
	return &File{Path: path}
}

// Load parses the file over Default. A missing file is created with the
// defaults.
func (f *File) Load() (*Plugin, error) {
	cfg := Default()

	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		if err := f.Save(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config '%s': %w", f.Path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config '%s': %w", f.Path, err)
	}
	return cfg, nil
}

// Save writes cfg through a temporary file so readers never see half a file.
func (f *File) Save(cfg *Plugin) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp config: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("replacing config '%s': %w", f.Path, err)
	}
	return nil
}
