// Package shadertmpl generates the GLSL-flavored compute shader source
// text for one compiled program. Actually producing a correct GLSL
// butterfly body is outside this engine's normative scope (spec §1's
// non-goal on concrete shader bodies); what this package guarantees is
// that the declared specialization -- the full fparams.Parameters
// fingerprint -- is embedded losslessly as a trailing comment, the way
// a real codegen would emit #define specialization constants, so that
// a backend compiling this text (including the in-process reference
// backend, package driver/mem) can recover exactly which program it is
// being asked to build.
package shadertmpl

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/arnek/gpufft/fparams"
)

const paramsPrefix = "// gpufft:params:"

// Generate returns the GLSL-flavored source text for one compute
// program specialized by p.
func Generate(p fparams.Parameters) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "#version 310 es\n")
	fmt.Fprintf(&b, "layout(local_size_x = %d, local_size_y = %d, local_size_z = 1) in;\n", max1(p.WorkGroupX), max1(p.WorkGroupY))
	fmt.Fprintf(&b, "// mode=%s direction=%s radix=%d vector_width=%d p=%d resolve_dim=%d\n",
		p.Mode, p.Direction, p.Radix, p.VectorWidth, p.P, p.ResolveDim)
	fmt.Fprintf(&b, "// input_target=%s output_target=%s shared_banked=%t normalize=%t\n",
		p.InputTarget, p.OutputTarget, p.SharedBanked, p.Normalize)
	b.WriteString("void main() {\n    // butterfly body omitted: see internal/stockham for the\n    // reference backend's equivalent math\n}\n")

	key := p.Bytes()
	fmt.Fprintf(&b, "%s%s\n", paramsPrefix, hex.EncodeToString(key[:]))
	return []byte(b.String())
}

func max1(v int32) int32 {
	if v <= 0 {
		return 1
	}
	return v
}

// ParseParams recovers the Parameters embedded by Generate from
// generated source text. It reports false if data was not produced by
// Generate (or was corrupted).
func ParseParams(data []byte) (fparams.Parameters, bool) {
	text := string(data)
	idx := strings.LastIndex(text, paramsPrefix)
	if idx < 0 {
		return fparams.Parameters{}, false
	}
	line := text[idx+len(paramsPrefix):]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	line = strings.TrimSpace(line)
	raw, err := hex.DecodeString(line)
	if err != nil {
		return fparams.Parameters{}, false
	}
	var key fparams.Key
	if len(raw) != len(key) {
		return fparams.Parameters{}, false
	}
	copy(key[:], raw)
	return fparams.FromBytes(key), true
}
