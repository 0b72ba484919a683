package settings

// DefaultName is the key the effect's settings live under in the host's settings document.
const DefaultName = "Screen Space GI"

// StoreBuilderOption is a functional option applied to a store during construction via NewStore.
type StoreBuilderOption func(*store)

// WithName overrides the key used by LoadDocument and SaveDocument.
//
// Parameters:
//   - name: the document key
//
// Returns:
//   - StoreBuilderOption: a function that applies the name option to a store
func WithName(name string) StoreBuilderOption {
	return func(s *store) {
		s.name = name
	}
}

// WithInitial seeds the store with the given settings instead of the defaults.
//
// Parameters:
//   - initial: the starting settings
//
// Returns:
//   - StoreBuilderOption: a function that applies the initial settings to a store
func WithInitial(initial EffectSettings) StoreBuilderOption {
	return func(s *store) {
		s.current = initial
	}
}

// WithChangeCallback registers a function called after every change with the new settings.
// Callbacks run on the goroutine that made the change, outside the store lock.
//
// Parameters:
//   - cb: the callback
//
// Returns:
//   - StoreBuilderOption: a function that registers the callback on a store
func WithChangeCallback(cb func(EffectSettings)) StoreBuilderOption {
	return func(s *store) {
		s.onChange = append(s.onChange, cb)
	}
}
