package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/h5works/restfs/pkg/registry"
	registrybadger "github.com/h5works/restfs/pkg/registry/badger"
	registrymemory "github.com/h5works/restfs/pkg/registry/memory"
)

// CreateRegistryStore creates an identity-registry store based on
// configuration. The Type field selects the implementation; the
// matching type-specific options map is decoded and passed to the
// store's constructor.
func CreateRegistryStore(cfg *RegistryConfig) (registry.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryRegistryStore(cfg.Memory)
	case "badger":
		return createBadgerRegistryStore(cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown registry store type: %q", cfg.Type)
	}
}

func createMemoryRegistryStore(options map[string]any) (registry.Store, error) {
	var storeCfg registrymemory.Config
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("invalid memory registry config: %w", err)
	}
	return registrymemory.NewStore(storeCfg), nil
}

func createBadgerRegistryStore(options map[string]any) (registry.Store, error) {
	var storeCfg registrybadger.Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &storeCfg,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("invalid badger registry config: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("invalid badger registry config: %w", err)
	}

	store, err := registrybadger.NewStore(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger registry: %w", err)
	}
	return store, nil
}
