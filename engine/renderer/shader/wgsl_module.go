package shader

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	structRegex        = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	attributeRegex     = regexp.MustCompile(`@(\w+)(?:\(\s*([^)]*?)\s*\))?`)
	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
	computeEntryRegex  = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindingRegex captures group, binding, address space, name and type of a declaration like
	// @group(0) @binding(1) var<uniform> params: TransformParams;
	bindingRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	vectorRegex = regexp.MustCompile(`^vec([234])(?:<(f32|i32|u32)>|([fiu]))$`)
	matrixRegex = regexp.MustCompile(`^mat([234])x([234])(?:<f32>|f)$`)
)

// vertexFormats maps a scalar type to its 1 to 4 component vertex formats.
var vertexFormats = map[string][4]wgpu.VertexFormat{
	"f32": {wgpu.VertexFormatFloat32, wgpu.VertexFormatFloat32x2, wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x4},
	"u32": {wgpu.VertexFormatUint32, wgpu.VertexFormatUint32x2, wgpu.VertexFormatUint32x3, wgpu.VertexFormatUint32x4},
	"i32": {wgpu.VertexFormatSint32, wgpu.VertexFormatSint32x2, wgpu.VertexFormatSint32x3, wgpu.VertexFormatSint32x4},
}

// typeLayout is the size and alignment of a host-shareable WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

// stride is the distance between consecutive array elements of the type.
func (l typeLayout) stride() uint64 {
	return common.AlignUp(l.size, l.align)
}

type wgslMember struct {
	name     string
	typ      string
	location int // -1 without @location
	builtin  bool
}

type wgslStruct struct {
	name    string
	members []wgslMember
}

// wgslModule is a WGSL source reduced to what pipeline creation needs: comment-free text, the
// declared structs and their memory layouts. A stage's source is parsed once.
type wgslModule struct {
	text    string
	structs []wgslStruct
	byName  map[string]*wgslStruct
	layouts map[string]typeLayout
}

// parseWGSL strips comments from source and collects its struct declarations.
func parseWGSL(source string) *wgslModule {
	m := &wgslModule{
		text:    stripComments(source),
		byName:  make(map[string]*wgslStruct),
		layouts: make(map[string]typeLayout),
	}
	for _, match := range structRegex.FindAllStringSubmatch(m.text, -1) {
		m.structs = append(m.structs, wgslStruct{name: match[1], members: parseMembers(match[2])})
	}
	for i := range m.structs {
		m.byName[m.structs[i].name] = &m.structs[i]
	}
	return m
}

// parseMembers splits a struct body into members, reading the @location and @builtin attributes.
func parseMembers(body string) []wgslMember {
	var members []wgslMember
	for _, part := range splitTopLevel(body) {
		member := wgslMember{location: -1}
		for _, attr := range attributeRegex.FindAllStringSubmatch(part, -1) {
			switch attr[1] {
			case "builtin":
				member.builtin = true
			case "location":
				if loc, err := strconv.Atoi(attr[2]); err == nil {
					member.location = loc
				}
			}
		}
		name, typ, ok := strings.Cut(attributeRegex.ReplaceAllString(part, ""), ":")
		if !ok {
			continue
		}
		member.name = strings.TrimSpace(name)
		member.typ = strings.TrimSpace(typ)
		members = append(members, member)
	}
	return members
}

// entryPoint returns the name of the function carrying the stage attribute, or "".
func (m *wgslModule) entryPoint(stage ShaderType) string {
	var re *regexp.Regexp
	switch stage {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	case ShaderTypeCompute:
		re = computeEntryRegex
	default:
		return ""
	}
	if match := re.FindStringSubmatch(m.text); match != nil {
		return match[1]
	}
	return ""
}

// workgroupSize returns the @workgroup_size dimensions. Missing dimensions, and a missing
// attribute, are 1.
func (m *wgslModule) workgroupSize() [3]uint32 {
	size := [3]uint32{1, 1, 1}
	match := workgroupSizeRegex.FindStringSubmatch(m.text)
	if match == nil {
		return size
	}
	for i, dim := range match[1:] {
		if v, err := strconv.ParseUint(dim, 10, 32); err == nil {
			size[i] = uint32(v)
		}
	}
	return size
}

// vertexBuffers builds one tightly packed buffer layout per vertex input struct, in declaration
// order. A vertex input struct has @location members and no @builtin member; structs with a
// member that is not a scalar or vector of f32, u32 or i32 are skipped.
func (m *wgslModule) vertexBuffers() []wgpu.VertexBufferLayout {
	var layouts []wgpu.VertexBufferLayout
	for _, st := range m.structs {
		if layout, ok := vertexLayout(st); ok {
			layouts = append(layouts, layout)
		}
	}
	return layouts
}

func vertexLayout(st wgslStruct) (wgpu.VertexBufferLayout, bool) {
	layout := wgpu.VertexBufferLayout{StepMode: wgpu.VertexStepModeVertex}
	for _, member := range st.members {
		if member.builtin || member.location < 0 {
			return wgpu.VertexBufferLayout{}, false
		}
		scalar, n := member.typ, 1
		if match := vectorRegex.FindStringSubmatch(member.typ); match != nil {
			n, _ = strconv.Atoi(match[1])
			scalar = match[2]
			if scalar == "" {
				scalar = map[string]string{"f": "f32", "u": "u32", "i": "i32"}[match[3]]
			}
		}
		formats, ok := vertexFormats[scalar]
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
			Format:         formats[n-1],
			Offset:         layout.ArrayStride,
			ShaderLocation: uint32(member.location),
		})
		layout.ArrayStride += uint64(4 * n)
	}
	return layout, len(layout.Attributes) > 0
}

// bufferBindings returns the buffer declarations as layout descriptors keyed by group, entries
// sorted by binding, with MinBindingSize taken from the bound type. A runtime-sized array binds
// at least one element. Texture and sampler declarations carry no address space and are skipped.
// The second result names every kept declaration, ordered by group and binding.
func (m *wgslModule) bufferBindings(visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, []Binding) {
	var bindings []Binding
	descriptors := make(map[int]wgpu.BindGroupLayoutDescriptor)

	for _, match := range bindingRegex.FindAllStringSubmatch(m.text, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])

		entry := wgpu.BindGroupLayoutEntry{Binding: uint32(binding), Visibility: visibility}
		switch space := strings.TrimSpace(match[3]); {
		case space == "uniform":
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		case strings.HasPrefix(space, "storage") && strings.Contains(space, "read_write"):
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		case strings.HasPrefix(space, "storage"):
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		default:
			continue
		}
		if layout, ok := m.layoutOf(strings.TrimSpace(match[5])); ok {
			entry.Buffer.MinBindingSize = layout.size
		}
		desc := descriptors[group]
		desc.Entries = append(desc.Entries, entry)
		descriptors[group] = desc
		bindings = append(bindings, Binding{Group: group, Binding: binding, Name: match[4]})
	}

	for _, desc := range descriptors {
		slices.SortFunc(desc.Entries, func(a, b wgpu.BindGroupLayoutEntry) int {
			return cmp.Compare(a.Binding, b.Binding)
		})
	}
	slices.SortFunc(bindings, func(a, b Binding) int {
		return cmp.Or(cmp.Compare(a.Group, b.Group), cmp.Compare(a.Binding, b.Binding))
	})
	return descriptors, bindings
}

// layoutOf resolves the size and alignment of typ. A runtime-sized array reports one element,
// and a struct ending in one reports its fixed prefix plus one element.
func (m *wgslModule) layoutOf(typ string) (typeLayout, bool) {
	switch typ {
	case "f32", "i32", "u32", "bool", "atomic<u32>", "atomic<i32>":
		return typeLayout{4, 4}, true
	}
	if match := vectorRegex.FindStringSubmatch(typ); match != nil {
		n, _ := strconv.Atoi(match[1])
		return vectorLayout(n), true
	}
	if match := matrixRegex.FindStringSubmatch(typ); match != nil {
		cols, _ := strconv.Atoi(match[1])
		rows, _ := strconv.Atoi(match[2])
		column := vectorLayout(rows)
		return typeLayout{uint64(cols) * column.stride(), column.align}, true
	}
	if inner, ok := strings.CutPrefix(typ, "array<"); ok && strings.HasSuffix(inner, ">") {
		elemType, count, sized := strings.Cut(inner[:len(inner)-1], ",")
		elem, ok := m.layoutOf(strings.TrimSpace(elemType))
		if !ok {
			return typeLayout{}, false
		}
		n := uint64(1)
		if sized {
			if n, ok = parseCount(count); !ok {
				return typeLayout{}, false
			}
		}
		return typeLayout{n * elem.stride(), elem.align}, true
	}
	return m.structLayout(typ)
}

// structLayout places members at their aligned offsets and rounds the size up to the largest
// member alignment. Layouts are memoized by struct name.
func (m *wgslModule) structLayout(name string) (typeLayout, bool) {
	if layout, ok := m.layouts[name]; ok {
		return layout, true
	}
	st, ok := m.byName[name]
	if !ok {
		return typeLayout{}, false
	}

	var offset uint64
	align := uint64(1)
	for _, member := range st.members {
		if member.builtin {
			continue
		}
		field, ok := m.layoutOf(member.typ)
		if !ok {
			return typeLayout{}, false
		}
		offset = common.AlignUp(offset, field.align) + field.size
		align = max(align, field.align)
	}

	layout := typeLayout{common.AlignUp(offset, align), align}
	m.layouts[name] = layout
	return layout, true
}

func vectorLayout(n int) typeLayout {
	switch n {
	case 2:
		return typeLayout{8, 8}
	case 3:
		return typeLayout{12, 16}
	default:
		return typeLayout{16, 16}
	}
}

func parseCount(s string) (uint64, bool) {
	n, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimSpace(s), "u"), 10, 64)
	return n, err == nil && n > 0
}

// stripComments removes line comments and nested block comments, keeping line breaks.
func stripComments(src string) string {
	var sb strings.Builder
	sb.Grow(len(src))
	depth := 0
	for i := 0; i < len(src); i++ {
		switch {
		case strings.HasPrefix(src[i:], "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(src[i:], "*/"):
			depth--
			i++
		case depth > 0:
		case strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				return sb.String()
			}
			i += end - 1
		default:
			sb.WriteByte(src[i])
		}
	}
	return sb.String()
}

// splitTopLevel splits a struct body at commas outside angle brackets, so array<f32, 4> stays whole.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
