// Package fragments loads settings fragments from YAML files so operators can
// declare settings without code changes.
package fragments

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/settings"
)

// Load parses every file in order. Fragment names must be unique.
func Load(paths []string) ([]settings.Fragment, error) {
	seen := make(map[string]string, len(paths))
	out := make([]settings.Fragment, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fragment: %w", err)
		}
		f, err := settings.ParseFragment(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%s: fragment %q already loaded from %s", path, f.Name, prev)
		}
		seen[f.Name] = path
		out = append(out, f)
	}
	return out, nil
}

// Source holds the fragments currently loaded from disk. Registries built
// after a reload see the new set; registries already built keep theirs.
type Source struct {
	current atomic.Pointer[[]settings.Fragment]
	logger  zerolog.Logger
}

// NewSource loads paths into a new source.
func NewSource(paths []string, logger zerolog.Logger) (*Source, error) {
	s := &Source{logger: logger.With().Str("component", "fragments").Logger()}
	if err := s.Reload(paths); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the loaded fragments. On error the previous set stays.
func (s *Source) Reload(paths []string) error {
	loaded, err := Load(paths)
	if err != nil {
		return err
	}
	s.current.Store(&loaded)

	names := make([]string, len(loaded))
	for i, f := range loaded {
		names[i] = f.Name
	}
	s.logger.Info().Strs("fragments", names).Msg("settings fragments loaded")
	return nil
}

// Fragments returns the loaded fragments.
func (s *Source) Fragments() []settings.Fragment {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return nil
}

// RegisterServer contributes every loaded fragment under "fragments.<name>".
func (s *Source) RegisterServer(r *filter.Registry[filter.Server]) error {
	for _, f := range s.Fragments() {
		if err := extension.ServerGetSettingsSchema.Enqueue(r, "fragments."+f.Name, settings.Contribute(f)); err != nil {
			return err
		}
	}
	return nil
}
