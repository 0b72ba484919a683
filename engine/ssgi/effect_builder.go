package ssgi

import "github.com/Carmen-Shannon/oxy-ssgi/engine/settings"

// EffectBuilderOption is a functional option applied to an effect during construction via NewEffect.
type EffectBuilderOption func(*effect)

// WithSettingsStore sets the store the effect reads its settings from.
//
// Parameters:
//   - store: the settings store
//
// Returns:
//   - EffectBuilderOption: a function that applies the store option to an effect
func WithSettingsStore(store settings.Store) EffectBuilderOption {
	return func(e *effect) {
		e.store = store
	}
}

// WithResourceManager replaces the default resource manager.
func WithResourceManager(rm ResourceManager) EffectBuilderOption {
	return func(e *effect) {
		e.resources = rm
	}
}

// WithStageObserver registers a callback invoked after every submitted stage.
//
// Parameters:
//   - o: the observer
//
// Returns:
//   - EffectBuilderOption: a function that registers the observer on an effect
func WithStageObserver(o StageObserver) EffectBuilderOption {
	return func(e *effect) {
		e.observers = append(e.observers, o)
	}
}

// WithLoaded marks the effect loaded at construction, for hosts without a settings document.
func WithLoaded() EffectBuilderOption {
	return func(e *effect) {
		e.loaded = true
	}
}
