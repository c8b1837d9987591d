package entropy

import "testing"

func TestSeed_Positive(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 100; i++ {
		s := Seed()
		if s <= 0 {
			t.Fatalf("Seed() = %d, want > 0", s)
		}
		seen[s] = true
	}
	if len(seen) < 99 {
		t.Errorf("only %d distinct seeds in 100 draws", len(seen))
	}
}

func TestSeedFrom(t *testing.T) {
	tests := []struct {
		in   uint64
		want int64
	}{
		{0, 0},
		{1 << 63, 0},
		{1<<63 | 7, 7},
		{42, 42},
	}
	for _, tt := range tests {
		if got := seedFrom(tt.in); got != tt.want {
			t.Errorf("seedFrom(%#x) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
