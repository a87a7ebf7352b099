package enumerate

import (
	"testing"

	"github.com/arnek/gpufft/fparams"
)

func TestOptionsOnlyYieldsLegalTuples(t *testing.T) {
	c := Constraints{
		Length:                  64,
		SurfaceComponents:       2,
		MaxWorkGroupInvocations: 256,
		FP16Core:                false,
		SupportsVectorWidth8:    false,
	}
	count := 0
	for cand := range Options(c) {
		count++
		if cand.Radix > c.Length {
			t.Errorf("candidate radix %d exceeds length %d", cand.Radix, c.Length)
		}
		if cand.WorkGroupX*cand.WorkGroupY > c.MaxWorkGroupInvocations {
			t.Errorf("work-group size %dx%d exceeds limit %d", cand.WorkGroupX, cand.WorkGroupY, c.MaxWorkGroupInvocations)
		}
		if cand.VectorWidth == 4 {
			t.Errorf("vector_width=4 requires SurfaceComponents>=4, got candidate %+v at SurfaceComponents=2", cand)
		}
		if cand.VectorWidth == 8 {
			t.Errorf("vector_width=8 requires fp16 core support, got candidate %+v", cand)
		}
	}
	if count == 0 {
		t.Fatal("expected at least one legal candidate")
	}
}

func TestOptionsRestrictsResolveToRadixTwo(t *testing.T) {
	c := Constraints{
		Length:                  2048,
		SurfaceComponents:       2,
		MaxWorkGroupInvocations: 256,
		IsResolve:               true,
	}
	for cand := range Options(c) {
		if cand.Radix != 2 {
			t.Errorf("resolve constraint yielded radix %d, want 2", cand.Radix)
		}
	}
}

func TestOptionsAllowsVectorWidth4ForDualSurfaces(t *testing.T) {
	c := Constraints{
		Length:                  256,
		SurfaceComponents:       4,
		MaxWorkGroupInvocations: 256,
	}
	found4 := false
	for cand := range Options(c) {
		if cand.VectorWidth == 4 {
			found4 = true
		}
	}
	if !found4 {
		t.Fatal("expected at least one vector_width=4 candidate with SurfaceComponents=4")
	}
}

func TestValidInputTarget(t *testing.T) {
	cases := []struct {
		passPos int
		target  fparams.Target
		want    bool
	}{
		{0, fparams.Image, true},
		{0, fparams.ImageReal, true},
		{0, fparams.SSBO, true},
		{1, fparams.SSBO, true},
		{1, fparams.Image, false},
		{2, fparams.ImageReal, false},
	}
	for _, c := range cases {
		if got := ValidInputTarget(c.passPos, c.target); got != c.want {
			t.Errorf("ValidInputTarget(%d, %s) = %v, want %v", c.passPos, c.target, got, c.want)
		}
	}
}
