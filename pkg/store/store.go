package store

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/dskvich/banana-draw-bot/pkg/config"
	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/params"
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrNoTriggers     = errors.New("preset has no trigger words")
)

// Preset is a stored command: its trigger aliases, default prompt and
// default options.
type Preset = params.Command

type Persister interface {
	Save(cfg *config.Plugin) error
}

// Settings is a snapshot of the non-preset configuration.
type Settings struct {
	Providers        []domain.Provider
	Defaults         domain.Defaults
	Retry            int
	SaveImage        bool
	Prefixes         []string
	CoexistEnabled   bool
	WhitelistEnabled bool
}

// Store owns the plugin configuration while the bot runs. Reads take a
// snapshot; every mutation is written back through the persister and undone
// if the write fails.
type Store struct {
	mu        sync.RWMutex
	cfg       *config.Plugin
	presets   []*Preset
	byTrigger map[string]*Preset
	persister Persister
}

func New(cfg *config.Plugin, persister Persister) *Store {
	s := &Store{persister: persister}
	s.load(cfg)
	return s
}

// Reload replaces the whole configuration, e.g. after the file changed on disk.
func (s *Store) Reload(cfg *config.Plugin) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.load(cfg)
	slog.Info("plugin config reloaded", "presets", len(s.presets), "providers", len(cfg.Providers()))
}

func (s *Store) load(cfg *config.Plugin) {
	s.cfg = cfg.Clone()
	s.presets = nil
	s.byTrigger = make(map[string]*Preset)

	for _, line := range cfg.Prompt {
		cmd := params.Parse(line)
		if len(cmd.Triggers) == 0 {
			continue
		}
		s.insert(cmd)
	}
}

// insert adds cmd, taking its triggers away from any preset that held them.
// Presets left without triggers are dropped. Returns the triggers that were
// taken over.
func (s *Store) insert(cmd params.Command) []string {
	preset := &Preset{Triggers: lo.Uniq(cmd.Triggers), Params: cmd.Params}

	var overwritten []string
	for _, trigger := range preset.Triggers {
		if old, ok := s.byTrigger[trigger]; ok {
			overwritten = append(overwritten, trigger)
			s.detach(old, trigger)
		}
		s.byTrigger[trigger] = preset
	}
	s.presets = append(s.presets, preset)
	return overwritten
}

func (s *Store) detach(preset *Preset, trigger string) {
	delete(s.byTrigger, trigger)
	preset.Triggers = lo.Without(preset.Triggers, trigger)
	if len(preset.Triggers) == 0 {
		s.presets = lo.Without(s.presets, preset)
	}
}

func (s *Store) Lookup(trigger string) (Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	preset, ok := s.byTrigger[trigger]
	if !ok {
		return Preset{}, false
	}
	return clonePreset(preset), true
}

// Presets returns every preset in configuration order.
func (s *Store) Presets() []Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.presets, func(p *Preset, _ int) Preset {
		return clonePreset(p)
	})
}

// UpsertPreset stores the preset described by line. Triggers already used
// by other presets are moved to the new one and returned.
func (s *Store) UpsertPreset(line string) ([]string, error) {
	cmd := params.Parse(line)
	if len(cmd.Triggers) == 0 {
		return nil, ErrNoTriggers
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var overwritten []string
	err := s.update(func() { overwritten = s.insert(cmd) })
	if err != nil {
		return nil, err
	}
	return overwritten, nil
}

// UpdatePreset is UpsertPreset for a preset that must already exist under at
// least one of the line's triggers.
func (s *Store) UpdatePreset(line string) error {
	cmd := params.Parse(line)
	if len(cmd.Triggers) == 0 {
		return ErrNoTriggers
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !lo.SomeBy(cmd.Triggers, func(t string) bool { return s.byTrigger[t] != nil }) {
		return fmt.Errorf("updating '%s': %w", cmd.Triggers[0], ErrPresetNotFound)
	}

	return s.update(func() { s.insert(cmd) })
}

// DeleteTrigger removes one alias. The preset goes away with its last alias.
func (s *Store) DeleteTrigger(trigger string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	preset, ok := s.byTrigger[trigger]
	if !ok {
		return fmt.Errorf("deleting '%s': %w", trigger, ErrPresetNotFound)
	}

	return s.update(func() { s.detach(preset, trigger) })
}

// DeletePreset removes the preset holding trigger together with all its aliases.
func (s *Store) DeletePreset(trigger string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	preset, ok := s.byTrigger[trigger]
	if !ok {
		return fmt.Errorf("deleting '%s': %w", trigger, ErrPresetNotFound)
	}

	return s.update(func() {
		for _, t := range preset.Triggers {
			delete(s.byTrigger, t)
		}
		s.presets = lo.Without(s.presets, preset)
	})
}

// IsWhitelisted reports whether origin may use the bot. Everything passes
// while the whitelist is disabled.
func (s *Store) IsWhitelisted(origin string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return !s.cfg.Whitelist.Enabled || lo.Contains(s.cfg.Whitelist.Whitelist, origin)
}

// WhitelistAdd adds origin and reports false if it was already listed.
func (s *Store) WhitelistAdd(origin string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lo.Contains(s.cfg.Whitelist.Whitelist, origin) {
		return false, nil
	}
	err := s.update(func() {
		s.cfg.Whitelist.Whitelist = append(s.cfg.Whitelist.Whitelist, origin)
	})
	return err == nil, err
}

// WhitelistRemove removes origin and reports false if it was not listed.
func (s *Store) WhitelistRemove(origin string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !lo.Contains(s.cfg.Whitelist.Whitelist, origin) {
		return false, nil
	}
	err := s.update(func() {
		s.cfg.Whitelist.Whitelist = lo.Without(s.cfg.Whitelist.Whitelist, origin)
	})
	return err == nil, err
}

func (s *Store) WhitelistList() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.cfg.Whitelist.Whitelist)
}

func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Settings{
		Providers:        s.cfg.Providers(),
		Defaults:         s.cfg.Defaults(),
		Retry:            s.cfg.Retry,
		SaveImage:        s.cfg.SaveImage,
		Prefixes:         slices.Clone(s.cfg.Prefix.PrefixList),
		CoexistEnabled:   s.cfg.Prefix.CoexistEnabled,
		WhitelistEnabled: s.cfg.Whitelist.Enabled,
	}
}

// update applies mutate and saves the result. A failed save restores the
// state from before mutate. Must be called with the write lock held.
func (s *Store) update(mutate func()) error {
	prev := s.cfg.Clone()
	prev.Prompt = s.promptLines()

	mutate()
	if err := s.persist(); err != nil {
		s.load(prev)
		return err
	}
	return nil
}

func (s *Store) promptLines() []string {
	return lo.Map(s.presets, func(p *Preset, _ int) string {
		return p.String()
	})
}

func (s *Store) persist() error {
	s.cfg.Prompt = s.promptLines()

	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(s.cfg.Clone()); err != nil {
		return fmt.Errorf("saving plugin config: %w", err)
	}
	return nil
}

func clonePreset(p *Preset) Preset {
	return Preset{
		Triggers: slices.Clone(p.Triggers),
		Params:   p.Params.Merge(nil),
	}
}
