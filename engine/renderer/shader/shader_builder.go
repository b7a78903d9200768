package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithSnippet registers a WGSL snippet that the source can pull in with //@oxy:include.
//
// Parameters:
//   - name: the include name
//   - source: the snippet's WGSL text
//
// Returns:
//   - ShaderBuilderOption: a function that registers the snippet
func WithSnippet(name, source string) ShaderBuilderOption {
	return func(s *shader) {
		s.snippets[name] = source
	}
}

// WithSnippets registers several snippets at once.
func WithSnippets(snippets map[string]string) ShaderBuilderOption {
	return func(s *shader) {
		for name, src := range snippets {
			s.snippets[name] = src
		}
	}
}
