package fparams

import "testing"

func TestNewIsZero(t *testing.T) {
	p := New()
	var want Parameters
	if !p.Equal(want) {
		t.Fatalf("New() is not the zero value: %+v", p)
	}
}

func TestEqualIgnoresGoPadding(t *testing.T) {
	a := New()
	a.Radix = 4
	a.VectorWidth = 2
	a.Mode = Horizontal
	b := New()
	b.Radix = 4
	b.VectorWidth = 2
	b.Mode = Horizontal
	if !a.Equal(b) {
		t.Fatalf("identically constructed records compare unequal: %+v vs %+v", a, b)
	}
	if a.Hash() != b.Hash() {
		t.Fatalf("identically constructed records hash differently")
	}
}

func TestHashDistinguishesFields(t *testing.T) {
	cases := []func(*Parameters){
		func(p *Parameters) { p.Radix = 8 },
		func(p *Parameters) { p.VectorWidth = 4 },
		func(p *Parameters) { p.P1 = true },
		func(p *Parameters) { p.Mode = Vertical },
		func(p *Parameters) { p.InputTarget = Image },
		func(p *Parameters) { p.FP16Core = true },
		func(p *Parameters) { p.ResolveDim = 512 },
	}
	base := New()
	baseHash := base.Hash()
	for i, mutate := range cases {
		p := New()
		mutate(&p)
		if p.Hash() == baseHash {
			t.Errorf("case %d: mutated record hashes same as zero value", i)
		}
		if p.Equal(base) {
			t.Errorf("case %d: mutated record compares equal to zero value", i)
		}
	}
}

func TestTypeDualAndReal(t *testing.T) {
	if !C2CDual.Dual() {
		t.Error("C2CDual.Dual() = false")
	}
	if C2C.Dual() {
		t.Error("C2C.Dual() = true")
	}
	for _, ty := range []Type{C2R, R2C} {
		if !ty.Real() {
			t.Errorf("%v.Real() = false", ty)
		}
	}
	for _, ty := range []Type{C2C, C2CDual} {
		if ty.Real() {
			t.Errorf("%v.Real() = true", ty)
		}
	}
}

func TestModeIsResolve(t *testing.T) {
	for _, m := range []Mode{ResolveRealToComplex, ResolveComplexToReal} {
		if !m.IsResolve() {
			t.Errorf("%v.IsResolve() = false", m)
		}
	}
	for _, m := range []Mode{Horizontal, HorizontalDual, Vertical, VerticalDual} {
		if m.IsResolve() {
			t.Errorf("%v.IsResolve() = true", m)
		}
	}
}

func TestDefaultPerformance(t *testing.T) {
	perf := DefaultPerformance()
	if perf.WorkGroupSizeX != 4 || perf.WorkGroupSizeY != 1 || perf.VectorWidth != 2 {
		t.Fatalf("unexpected defaults: %+v", perf)
	}
}
