// annotations.go defines the annotation syntax of the engine's WGSL pre-processor. Annotations are
// single-line WGSL comments prefixed with @oxy: that inject shared WGSL snippets and generate
// bind group declarations.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects a registered WGSL snippet at the annotation site.
	//
	// Syntax: //@oxy:include <snippet>
	//
	// Example: //@oxy:include color
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a @group/@binding variable declaration and records it
	// in the pre-processor's declarations list.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <wgsl_type>
	//
	// Example: //@oxy:group 0 0 read_write vertices array<f32>
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// AddressSpace is the address space argument of a group annotation.
type AddressSpace string

const (
	AddressSpaceUniform   AddressSpace = "uniform"
	AddressSpaceRead      AddressSpace = "read"
	AddressSpaceReadWrite AddressSpace = "read_write"
)

// addressSpaceSyntax maps address space arguments to WGSL var<> syntax.
var addressSpaceSyntax = map[AddressSpace]string{
	AddressSpaceUniform:   "var<uniform>",
	AddressSpaceRead:      "var<storage, read>",
	AddressSpaceReadWrite: "var<storage, read_write>",
}

// Annotation is a single parsed @oxy: annotation.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Snippet is the include target for AnnotationTypeInclude.
	Snippet string

	// Group and Binding locate a generated declaration.
	Group, Binding int

	// AddressSpace, VarName and WGSLType describe a generated declaration.
	AddressSpace AddressSpace
	VarName      string
	WGSLType     string

	// Line is the 1-based source line of the annotation.
	Line int
}

// Declaration renders the WGSL declaration for a group annotation.
func (a Annotation) Declaration() string {
	return fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", a.Group, a.Binding, addressSpaceSyntax[a.AddressSpace], a.VarName, a.WGSLType)
}

// parseAnnotation parses one source line. Lines without the prefix return nil and no error.
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
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{Type: AnnotationTypeInclude, Snippet: args[1], Line: lineNum}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires group, binding, address space, name and type", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q: %v", lineNum, args[1], err)
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q: %v", lineNum, args[2], err)
		}
		space := AddressSpace(args[3])
		if !slices.Contains([]AddressSpace{AddressSpaceUniform, AddressSpaceRead, AddressSpaceReadWrite}, space) {
			return nil, fmt.Errorf("line %d: unknown address space %q", lineNum, args[3])
		}
		return &Annotation{
			Type:         AnnotationTypeBindingGroup,
			Group:        group,
			Binding:      binding,
			AddressSpace: space,
			VarName:      args[4],
			WGSLType:     args[5],
			Line:         lineNum,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
