// pre_processor.go implements the Oxy WGSL kernel pre-processor. It scans kernel source
// for @oxy: annotations, injects registered struct sources, resolves ifdef/ifndef blocks
// against the kernel's define set and expands ${NAME} substitutions.
package shader

import (
	"fmt"
	"slices"
	"strings"
)

// IncludeEntry pairs a WGSL struct source string (embedded from a .wgsl asset file)
// with the WGSL type name it declares.
type IncludeEntry struct {
	// Source is the raw WGSL struct definition text injected by @oxy:include.
	Source string

	// Type is the WGSL type name the source declares (e.g. "SSGIConstants").
	Type string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// includeRegistry maps include names to their embedded WGSL source and type name.
	includeRegistry map[string]IncludeEntry

	// substitutions maps NAME to the text that replaces ${NAME} in kept lines.
	substitutions map[string]string
}

// conditional is one open ifdef/ifndef block.
type conditional struct {
	line     int
	parent   bool
	taken    bool
	sawElse  bool
	emitting bool
}

// PreProcessor turns annotated kernel source into plain WGSL for one define set.
type PreProcessor interface {
	// Process pre-processes raw WGSL kernel source. @oxy:include annotations are replaced with
	// the registered struct source, lines inside inactive ifdef/ifndef blocks are dropped and
	// ${NAME} substitutions are expanded on every kept line.
	//
	// Parameters:
	//   - source: the raw WGSL source code containing annotations
	//   - defines: the preprocessor defines that are set for this variant
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if an annotation is malformed, an include is unknown or a block is unbalanced
	Process(source string, defines []string) (string, error)

	// Include looks up a registered include.
	//
	// Parameters:
	//   - name: the include name used in @oxy:include
	//
	// Returns:
	//   - IncludeEntry: the registered source and type
	//   - bool: false if nothing is registered under name
	Include(name string) (IncludeEntry, bool)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with an empty include registry. Use WithInclude to
// register struct sources and WithSubstitution to register ${NAME} replacements.
//
// Parameters:
//   - options: functional options applied to the pre-processor
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(options ...PreProcessorOption) PreProcessor {
	p := &preProcessor{
		includeRegistry: make(map[string]IncludeEntry),
		substitutions:   make(map[string]string),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *preProcessor) Include(name string) (IncludeEntry, bool) {
	entry, ok := p.includeRegistry[name]
	return entry, ok
}

func (p *preProcessor) Process(source string, defines []string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	replacer := p.replacer()
	included := make(map[string]bool)

	var stack []conditional
	emitting := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].emitting
	}

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			if emitting() {
				out = append(out, replacer.Replace(line))
			}
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			if !emitting() {
				continue
			}
			entry, ok := p.includeRegistry[a.Arg]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", a.Line, a.Arg)
			}
			if included[a.Arg] {
				continue
			}
			included[a.Arg] = true
			out = append(out, entry.Source)
		case annotationTypeIfdef, annotationTypeIfndef:
			set := slices.Contains(defines, a.Arg)
			taken := set == (a.Type == annotationTypeIfdef)
			parent := emitting()
			stack = append(stack, conditional{line: a.Line, parent: parent, taken: taken, emitting: parent && taken})
		case annotationTypeElse:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: @oxy:else without a matching ifdef", a.Line)
			}
			top := &stack[len(stack)-1]
			if top.sawElse {
				return "", fmt.Errorf("line %d: duplicate @oxy:else for the block opened on line %d", a.Line, top.line)
			}
			top.sawElse = true
			top.emitting = top.parent && !top.taken
		case annotationTypeEndif:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: @oxy:endif without a matching ifdef", a.Line)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 0 {
		return "", fmt.Errorf("line %d: @oxy:%s block is never closed", stack[len(stack)-1].line, annotationTypeIfdef)
	}
	return strings.Join(out, "\n"), nil
}

// replacer builds the ${NAME} replacer for the registered substitutions.
func (p *preProcessor) replacer() *strings.Replacer {
	pairs := make([]string, 0, 2*len(p.substitutions))
	for name, value := range p.substitutions {
		pairs = append(pairs, "${"+name+"}", value)
	}
	return strings.NewReplacer(pairs...)
}
