package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transformSource = `
struct TransformParams {
    translation: vec3<f32>,
    rotation: vec3<f32>,
    scale: vec3<f32>,
};

//@oxy:group 0 0 read_write vertices array<f32>
//@oxy:group 0 1 uniform params TransformParams

//@oxy:include helpers

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x * 6u;
    vertices[i] = double_it(vertices[i]) + params.translation.x;
}
`

const pointSource = `
struct Camera {
    view: mat4x4<f32>,
    proj: mat4x4<f32>,
    position: vec4<f32>,
};

struct VertexIn {
    @location(0) position: vec3<f32>,
    @location(1) color: vec3<f32>,
};

struct VertexOut {
    @builtin(position) clip: vec4<f32>,
    @location(0) color: vec3<f32>,
};

@group(0) @binding(0) var<uniform> camera: Camera;
@group(0) @binding(1) var<uniform> model: mat4x4<f32>;

@vertex
fn vs_main(in: VertexIn) -> VertexOut {
    var out: VertexOut;
    out.clip = camera.proj * camera.view * model * vec4<f32>(in.position, 1.0);
    out.color = in.color;
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    return vec4<f32>(in.color, 1.0);
}
`

func TestParseAnnotation(t *testing.T) {
	a, err := parseAnnotation("  //@oxy:include color", 3)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, AnnotationTypeInclude, a.Type)
	assert.Equal(t, "color", a.Snippet)
	assert.Equal(t, 3, a.Line)

	a, err = parseAnnotation("// plain comment", 1)
	assert.NoError(t, err)
	assert.Nil(t, a)

	a, err = parseAnnotation("//@oxy:group 1 2 read src array<u32>", 7)
	require.NoError(t, err)
	assert.Equal(t, "@group(1) @binding(2) var<storage, read> src: array<u32>;", a.Declaration())

	cases := []string{
		"//@oxy:",
		"//@oxy:include",
		"//@oxy:include a b",
		"//@oxy:group x 0 uniform p P",
		"//@oxy:group 0 y uniform p P",
		"//@oxy:group 0 0 private p P",
		"//@oxy:group 0 0 uniform p",
		"//@oxy:texture 0",
	}
	for _, line := range cases {
		_, err := parseAnnotation(line, 1)
		assert.Error(t, err, line)
	}
}

func TestPreProcessorIncludesOnce(t *testing.T) {
	pp := NewPreProcessor(map[string]string{
		"base": "fn base() -> f32 { return 1.0; }",
		"a":    "//@oxy:include base\nfn a() -> f32 { return base(); }",
		"b":    "//@oxy:include base\nfn b() -> f32 { return base(); }",
	})
	out, err := pp.Process("//@oxy:include a\n//@oxy:include b\n")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "fn base()"))
	assert.Contains(t, out, "fn a()")
	assert.Contains(t, out, "fn b()")
}

func TestPreProcessorUnknownSnippet(t *testing.T) {
	pp := NewPreProcessor(nil)
	_, err := pp.Process("//@oxy:include missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestPreProcessorDeclarations(t *testing.T) {
	pp := NewPreProcessor(nil)
	pp.Register("helpers", "")
	out, err := pp.Process(transformSource)
	require.NoError(t, err)
	assert.Contains(t, out, "@group(0) @binding(0) var<storage, read_write> vertices: array<f32>;")

	decls := pp.Declarations()
	require.Len(t, decls, 2)
	assert.Equal(t, "vertices", decls[0].VarName)
	assert.Equal(t, AddressSpaceUniform, decls[1].AddressSpace)

	_, err = pp.Process("fn f() {}")
	require.NoError(t, err)
	assert.Empty(t, pp.Declarations())
}

func TestComputeShaderMetadata(t *testing.T) {
	s := NewShader("transform", ShaderTypeCompute, transformSource,
		WithSnippet("helpers", "fn double_it(v: f32) -> f32 { return v * 2.0; }"))

	assert.Equal(t, "main", s.EntryPoint())
	assert.Equal(t, [3]uint32{64, 1, 1}, s.WorkgroupSize())
	assert.Contains(t, s.Source(), "fn double_it")
	assert.Equal(t, "transform", s.Module().Label)

	desc := s.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 2)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, desc.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(4), desc.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, desc.Entries[1].Buffer.Type)
	assert.Equal(t, uint64(48), desc.Entries[1].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageCompute, desc.Entries[1].Visibility)

	binding, ok := s.Lookup(0, "params")
	assert.True(t, ok)
	assert.Equal(t, 1, binding)
	_, ok = s.Lookup(3, "params")
	assert.False(t, ok)
	assert.Equal(t, []Binding{{0, 0, "vertices"}, {0, 1, "params"}}, s.Bindings())
	assert.Equal(t, ShaderTypeCompute, s.Stage())
	assert.Len(t, s.Declarations(), 2)
}

func TestRenderShaderMetadata(t *testing.T) {
	vs := NewShader("points", ShaderTypeVertex, pointSource)
	fs := NewShader("points", ShaderTypeFragment, pointSource)

	assert.Equal(t, "vs_main", vs.EntryPoint())
	assert.Equal(t, "fs_main", fs.EntryPoint())
	assert.Equal(t, [3]uint32{}, vs.WorkgroupSize())

	layouts := vs.VertexBuffers()
	require.Len(t, layouts, 1)
	layout := layouts[0]
	assert.Equal(t, uint64(24), layout.ArrayStride)
	require.Len(t, layout.Attributes, 2)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, layout.Attributes[0].Format)
	assert.Equal(t, uint64(0), layout.Attributes[0].Offset)
	assert.Equal(t, uint64(12), layout.Attributes[1].Offset)
	assert.Equal(t, uint32(1), layout.Attributes[1].ShaderLocation)
	assert.Empty(t, fs.VertexBuffers())

	desc := vs.BindGroupLayoutDescriptor(0)
	require.Len(t, desc.Entries, 2)
	assert.Equal(t, uint64(144), desc.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, uint64(64), desc.Entries[1].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageFragment, fs.BindGroupLayoutDescriptor(0).Entries[0].Visibility)
}

func TestRequireBindings(t *testing.T) {
	vs := NewShader("points", ShaderTypeVertex, pointSource)

	assert.NoError(t, RequireBindings(vs, 0, map[string]int{"camera": 0, "model": 1}))
	assert.NoError(t, RequireBindings(vs, 0, nil))

	err := RequireBindings(vs, 0, map[string]int{"camera": 0, "model": 2})
	require.ErrorIs(t, err, ErrBindingMismatch)
	assert.Contains(t, err.Error(), `"model" at 1`)

	err = RequireBindings(vs, 1, map[string]int{"camera": 0})
	require.ErrorIs(t, err, ErrBindingMismatch)
	assert.Contains(t, err.Error(), "no \"camera\" in group 1")
}

func TestNewShaderPanics(t *testing.T) {
	assert.Panics(t, func() { NewShader("empty", ShaderTypeCompute, "") })
	assert.Panics(t, func() { NewShader("noentry", ShaderTypeCompute, "fn f() {}") })
	assert.Panics(t, func() { NewShader("badinclude", ShaderTypeCompute, "//@oxy:include nope\n@compute @workgroup_size(1) fn main() {}") })
}

func TestStripComments(t *testing.T) {
	src := "a /* b /* nested */ c */ d // tail\ne"
	assert.Equal(t, "a  d \ne", stripComments(src))
	assert.Equal(t, "x ", stripComments("x // no newline"))
}

func TestLayoutOf(t *testing.T) {
	m := parseWGSL(`
struct Inner { a: vec3<f32>, b: f32 };
struct Outer {
    flag: u32,
    inner: Inner,
    m: mat3x3<f32>,
};
struct Tail { count: u32, items: array<vec2f> };
`)
	cases := map[string]typeLayout{
		"array<vec3<f32>, 4>": {64, 16},
		"array<u32>":          {4, 4},
		"vec2u":               {8, 8},
		"mat4x4<f32>":         {64, 16},
		"mat2x3f":             {32, 16},
		"Inner":               {16, 16},
		"Outer":               {80, 16},
		"Tail":                {16, 8},
	}
	for typ, want := range cases {
		got, ok := m.layoutOf(typ)
		require.True(t, ok, typ)
		assert.Equal(t, want, got, typ)
	}

	_, ok := m.layoutOf("Unknown")
	assert.False(t, ok)
	_, ok = m.layoutOf("array<Unknown, 2>")
	assert.False(t, ok)
}

func TestWorkgroupSizeDefaults(t *testing.T) {
	assert.Equal(t, [3]uint32{8, 4, 1}, parseWGSL("@compute @workgroup_size(8, 4) fn main() {}").workgroupSize())
	assert.Equal(t, [3]uint32{1, 1, 1}, parseWGSL("fn main() {}").workgroupSize())
}
