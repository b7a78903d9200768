package shader

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrBindingMismatch is returned by RequireBindings when a variable is missing or bound elsewhere.
var ErrBindingMismatch = errors.New("shader: binding mismatch")

// ShaderType is the pipeline stage a Shader is compiled for.
type ShaderType int

const (
	ShaderTypeCompute ShaderType = iota
	ShaderTypeVertex
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

func (t ShaderType) visibility() wgpu.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	default:
		return wgpu.ShaderStageCompute
	}
}

// Binding names one buffer variable declared with @group and @binding.
type Binding struct {
	Group   int
	Binding int
	Name    string
}

// Shader is one stage of a WGSL program after include expansion. Everything a backend needs to
// build the pipeline and its bind groups is read from the source at construction, so no driver
// reflection is involved.
type Shader interface {
	// Key returns the name the shader was created with.
	Key() string

	// Stage returns the pipeline stage.
	Stage() ShaderType

	// Source returns the WGSL after include and annotation expansion.
	Source() string

	// Module returns a shader module descriptor over Source.
	Module() *wgpu.ShaderModuleDescriptor

	// EntryPoint returns the name of the stage's entry function.
	EntryPoint() string

	// WorkgroupSize returns the compute stage's @workgroup_size, missing dimensions being 1.
	// Other stages report zeros.
	WorkgroupSize() [3]uint32

	// VertexBuffers returns one tightly packed buffer layout per vertex input struct in
	// declaration order. Only vertex stages have any.
	VertexBuffers() []wgpu.VertexBufferLayout

	// BindGroupLayoutDescriptor returns the buffer layout of one group.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the entries visible to this stage, empty for an unused group
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns every used group's layout keyed by group index.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// Bindings lists the declared buffer variables ordered by group, then binding.
	Bindings() []Binding

	// Lookup finds the binding of a named variable in a group.
	//
	// Parameters:
	//   - group: the @group index
	//   - name: the variable name
	//
	// Returns:
	//   - int: the binding index
	//   - bool: false when the group declares no such variable
	Lookup(group int, name string) (int, bool)

	// Declarations returns the @oxy:group annotations the source expanded.
	Declarations() []Annotation
}

type shader struct {
	key    string
	stage  ShaderType
	source string
	module *wgpu.ShaderModuleDescriptor

	entry     string
	workgroup [3]uint32
	vertex    []wgpu.VertexBufferLayout
	layouts   map[int]wgpu.BindGroupLayoutDescriptor
	bindings  []Binding
	decls     []Annotation

	snippets map[string]string
}

var _ Shader = &shader{}

// NewShader expands includes and annotations in source and reads the metadata of one stage
// from the result. One source may back both stages of a render pipeline. Shader sources are
// compiled into the binary, so an empty source, an unknown include, a malformed annotation or
// a missing entry point panics.
//
// Parameters:
//   - key: the shader's name, also used as the module label
//   - stage: the stage to compile for
//   - source: the WGSL text
//   - opts: snippet registrations for //@oxy:include
//
// Returns:
//   - Shader: the processed stage
func NewShader(key string, stage ShaderType, source string, opts ...ShaderBuilderOption) Shader {
	if source == "" {
		panic(fmt.Sprintf("shader %s: empty source", key))
	}
	s := &shader{key: key, stage: stage, snippets: make(map[string]string)}
	for _, opt := range opts {
		opt(s)
	}

	pp := NewPreProcessor(s.snippets)
	expanded, err := pp.Process(source)
	if err != nil {
		panic(fmt.Sprintf("shader %s: %v", key, err))
	}
	s.source = expanded
	s.decls = pp.Declarations()
	s.module = &wgpu.ShaderModuleDescriptor{
		Label:          key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: expanded},
	}

	wgsl := parseWGSL(expanded)
	if s.entry = wgsl.entryPoint(stage); s.entry == "" {
		panic(fmt.Sprintf("shader %s: no @%s entry point", key, stage))
	}
	switch stage {
	case ShaderTypeVertex:
		s.vertex = wgsl.vertexBuffers()
	case ShaderTypeCompute:
		s.workgroup = wgsl.workgroupSize()
	}
	s.layouts, s.bindings = wgsl.bufferBindings(stage.visibility())
	return s
}

func (s *shader) Key() string                              { return s.key }
func (s *shader) Stage() ShaderType                        { return s.stage }
func (s *shader) Source() string                           { return s.source }
func (s *shader) Module() *wgpu.ShaderModuleDescriptor     { return s.module }
func (s *shader) EntryPoint() string                       { return s.entry }
func (s *shader) WorkgroupSize() [3]uint32                 { return s.workgroup }
func (s *shader) VertexBuffers() []wgpu.VertexBufferLayout { return s.vertex }
func (s *shader) Bindings() []Binding                      { return s.bindings }
func (s *shader) Declarations() []Annotation               { return s.decls }

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.layouts[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.layouts
}

func (s *shader) Lookup(group int, name string) (int, bool) {
	for _, b := range s.bindings {
		if b.Group == group && b.Name == name {
			return b.Binding, true
		}
	}
	return 0, false
}

// RequireBindings checks that s declares each named variable of group at the expected binding,
// so Go code writing buffers by binding index agrees with the WGSL.
//
// Parameters:
//   - s: the shader to check
//   - group: the @group index
//   - want: variable name to binding index
//
// Returns:
//   - error: ErrBindingMismatch naming the first offending variable in name order
func RequireBindings(s Shader, group int, want map[string]int) error {
	for _, name := range slices.Sorted(maps.Keys(want)) {
		got, ok := s.Lookup(group, name)
		switch {
		case !ok:
			return fmt.Errorf("%w: %s declares no %q in group %d", ErrBindingMismatch, s.Key(), name, group)
		case got != want[name]:
			return fmt.Errorf("%w: %s binds %q at %d, want %d", ErrBindingMismatch, s.Key(), name, got, want[name])
		}
	}
	return nil
}
