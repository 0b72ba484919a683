// annotations.go defines the annotation types and parser for the Oxy WGSL kernel
// pre-processor. Annotations are single-line WGSL comments prefixed with @oxy: that
// inject registered struct sources and select code paths by preprocessor define, so one
// kernel source can be compiled into every variant the effect needs.
package shader

import (
	"fmt"
	"regexp"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition at the
	// annotation site. A struct is injected at most once per kernel.
	//
	// Syntax: //@oxy:include <name>
	//
	// Example: //@oxy:include ssgi_constants
	annotationTypeInclude AnnotationType = "include"

	// annotationTypeIfdef starts a block that is kept only when the define is set.
	//
	// Syntax: //@oxy:ifdef <DEFINE>
	annotationTypeIfdef AnnotationType = "ifdef"

	// annotationTypeIfndef starts a block that is kept only when the define is not set.
	//
	// Syntax: //@oxy:ifndef <DEFINE>
	annotationTypeIfndef AnnotationType = "ifndef"

	// annotationTypeElse flips the innermost open block.
	//
	// Syntax: //@oxy:else
	annotationTypeElse AnnotationType = "else"

	// annotationTypeEndif closes the innermost open block.
	//
	// Syntax: //@oxy:endif
	annotationTypeEndif AnnotationType = "endif"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Arg is the include name or define name. Empty for else and endif.
	Arg string

	// Line is the 1-based line number in the original WGSL source where this annotation
	// was found. Used for error reporting.
	Line int
}

// defineNameRegex matches the names accepted by ifdef and ifndef.
var defineNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	comment, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return nil, nil
	}
	after, ok := strings.CutPrefix(strings.TrimSpace(comment), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{Type: annotationTypeInclude, Arg: args[1], Line: lineNum}, nil
	case annotationTypeIfdef, annotationTypeIfndef:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy %s annotation requires exactly one define name", lineNum, args[0])
		}
		if !defineNameRegex.MatchString(args[1]) {
			return nil, fmt.Errorf("line %d: invalid define name %q", lineNum, args[1])
		}
		return &Annotation{Type: AnnotationType(args[0]), Arg: args[1], Line: lineNum}, nil
	case annotationTypeElse, annotationTypeEndif:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy %s annotation takes no arguments", lineNum, args[0])
		}
		return &Annotation{Type: AnnotationType(args[0]), Line: lineNum}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation %q", lineNum, args[0])
	}
}
