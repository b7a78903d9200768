package dispatch

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-luv/engine/renderer/shader/shadertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCoversWorkItems(t *testing.T) {
	p := NewPlanner(0)
	for _, n := range []uint32{1, 63, 64, 65, 1_000_000, 65535 * 64, 65535*64 + 1} {
		g, err := p.Plan(n, WorkgroupSize)
		require.NoError(t, err, "items %d", n)
		assert.GreaterOrEqual(t, g.Invocations(), uint64(n), "items %d", n)
		assert.LessOrEqual(t, g.X, DefaultLimit, "items %d", n)
		assert.LessOrEqual(t, g.Y, DefaultLimit, "items %d", n)
		// never more than one spare workgroup row
		assert.Less(t, g.Invocations()-uint64(n), uint64(DefaultLimit)*uint64(WorkgroupSize), "items %d", n)
	}
}

func TestPlanShapes(t *testing.T) {
	p := NewPlanner(0)

	g, err := p.Plan(65, 64)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{2, 1, 1}, g.Workgroups())

	g, err = p.Plan(65535*64, 64)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{65535, 1, 1}, g.Workgroups())

	g, err = p.Plan(65535*64+1, 64)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{65535, 2, 1}, g.Workgroups())
	assert.Equal(t, uint32(65535*64), g.RowStride)

	g, err = p.Plan(0, 64)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), g.Invocations())
}

func TestPlanSmallLimit(t *testing.T) {
	p := NewPlanner(4)

	g, err := p.Plan(1000, 64)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), g.X)
	assert.Equal(t, uint32(4), g.Y)
	assert.Equal(t, uint32(256), g.RowStride)

	_, err = p.Plan(4*4*64+1, 64)
	var limitErr *DispatchLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.True(t, errors.Is(err, ErrDispatchLimit))
	assert.Equal(t, uint64(1025), limitErr.WorkItems)
	assert.Contains(t, limitErr.Error(), "1024")

	assert.NoError(t, p.Check(1024, 64))
	assert.ErrorIs(t, p.Check(1025, 64), ErrDispatchLimit)
}

func TestPlanRejectsZeroWorkgroup(t *testing.T) {
	_, err := NewPlanner(0).Plan(10, 0)
	assert.Error(t, err)
}

func TestFlatIndexVisitsEachItemOnce(t *testing.T) {
	p := NewPlanner(8)
	const items = 500
	g, err := p.Plan(items, 16)
	require.NoError(t, err)

	seen := make([]int, items)
	for gy := uint32(0); gy < g.Y; gy++ {
		for gx := uint32(0); gx < g.X*g.WorkgroupSize; gx++ {
			idx := FlatIndex([3]uint32{gx, gy, 0}, g.RowStride)
			if idx >= items {
				continue
			}
			seen[idx]++
		}
	}
	for i, n := range seen {
		assert.Equal(t, 1, n, "index %d", i)
	}
}

func TestWGSLSnippet(t *testing.T) {
	src := NewPlanner(0).WGSL(64)
	assert.Contains(t, src, "const DISPATCH_ROW_STRIDE: u32 = 4194240u;")
	assert.Contains(t, src, "fn flat_index(gid: vec3<u32>) -> u32")

	shadertest.RequireCompiles(t, "dispatch", src+`
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = flat_index(gid);
    if (i >= arrayLength(&data)) {
        return;
    }
    data[i] = i;
}
`)
}
