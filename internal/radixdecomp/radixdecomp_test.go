package radixdecomp

import "testing"

func product(seq []int) int {
	p := 1
	for _, r := range seq {
		p *= r
	}
	return p
}

func TestAxisProductMatchesLength(t *testing.T) {
	for _, n := range []int{2, 4, 8, 16, 32, 64, 128, 256, 1024, 2048, 4096} {
		seq := Axis(n)
		if got := product(seq); got != n {
			t.Errorf("Axis(%d) = %v, product %d != %d", n, seq, got, n)
		}
		for _, r := range seq {
			switch r {
			case 2, 4, 8, 16, 64:
			default:
				t.Errorf("Axis(%d) contains illegal radix %d", n, r)
			}
		}
	}
}

func TestAxisPrefersFewerLargerRadicesFirst(t *testing.T) {
	seq := Axis(64)
	if len(seq) != 1 || seq[0] != 64 {
		t.Fatalf("Axis(64) = %v, want a single radix-64 pass", seq)
	}
	seq = Axis(2048)
	want := []int{64, 16, 2}
	if len(seq) != len(want) {
		t.Fatalf("Axis(2048) = %v, want %v", seq, want)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("Axis(2048) = %v, want %v", seq, want)
		}
	}
}

func TestAxisPanicsOnNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a non-power-of-two length")
		}
	}()
	Axis(100)
}
