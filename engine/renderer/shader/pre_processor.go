// pre_processor.go implements the WGSL pre-processor. It replaces @oxy:include lines with
// registered snippets, expands @oxy:group lines into bind group declarations and collects
// those declarations for callers that wire buffers by name.
package shader

import (
	"fmt"
	"strings"
)

type preProcessor struct {
	snippets     map[string]string
	declarations []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Register adds or replaces an include snippet.
	//
	// Parameters:
	//   - name: the include name used by //@oxy:include
	//   - source: the WGSL text injected at the include site
	Register(name, source string)

	// Process expands every annotation in source. Each snippet is injected at most once per call,
	// so two snippets may include a third without duplicate definitions.
	//
	// Parameters:
	//   - source: WGSL with //@oxy: lines
	//
	// Returns:
	//   - string: the expanded WGSL
	//   - error: an error if any annotation is malformed or names an unknown snippet
	Process(source string) (string, error)

	// Declarations returns the group annotations of the most recent Process call in source order.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the given snippets registered.
//
// Parameters:
//   - snippets: include name to WGSL source; may be nil
//
// Returns:
//   - PreProcessor: the pre-processor
func NewPreProcessor(snippets map[string]string) PreProcessor {
	p := &preProcessor{snippets: make(map[string]string, len(snippets))}
	for name, src := range snippets {
		p.snippets[name] = src
	}
	return p
}

func (p *preProcessor) Register(name, source string) {
	p.snippets[name] = source
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = nil
	return p.expand(source, make(map[string]bool), 0)
}

func (p *preProcessor) expand(source string, included map[string]bool, depth int) (string, error) {
	if depth > 8 {
		return "", fmt.Errorf("@oxy:include nesting deeper than 8 levels")
	}

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypeInclude:
			src, ok := p.snippets[a.Snippet]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include snippet %q", a.Line, a.Snippet)
			}
			if included[a.Snippet] {
				continue
			}
			included[a.Snippet] = true
			expanded, err := p.expand(src, included, depth+1)
			if err != nil {
				return "", fmt.Errorf("in snippet %q: %w", a.Snippet, err)
			}
			out = append(out, expanded)
		case AnnotationTypeBindingGroup:
			out = append(out, a.Declaration())
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
