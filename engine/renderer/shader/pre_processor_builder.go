package shader

// PreProcessorOption is a functional option used to configure a PreProcessor during construction.
type PreProcessorOption func(*preProcessor)

// WithInclude registers a struct source that kernels can inject with @oxy:include.
//
// Parameters:
//   - name: the include name used in the annotation
//   - source: the WGSL struct definition
//   - typeName: the WGSL type name the source declares
//
// Returns:
//   - PreProcessorOption: a function that registers the include
func WithInclude(name, source, typeName string) PreProcessorOption {
	return func(p *preProcessor) {
		p.includeRegistry[name] = IncludeEntry{Source: source, Type: typeName}
	}
}

// WithSubstitution registers text that replaces every ${name} in kernel source.
//
// Parameters:
//   - name: the substitution name
//   - value: the replacement text
//
// Returns:
//   - PreProcessorOption: a function that registers the substitution
func WithSubstitution(name, value string) PreProcessorOption {
	return func(p *preProcessor) {
		p.substitutions[name] = value
	}
}
