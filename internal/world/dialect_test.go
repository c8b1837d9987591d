package world

import (
	"math"
	"math/rand"
	"testing"
)

func TestGenerational_NewGeneration(t *testing.T) {
	g := NewGenerational(5)
	s := NewSettlement(0, 0, 0, g)

	s.Update(1.0)
	if g.Children() != 1.0 {
		t.Fatalf("children = %v, want 1", g.Children())
	}
	if got := s.Value(); got != 0 {
		t.Errorf("Value() before aging = %v, want 0", got)
	}

	s.NewGeneration()

	want := []float64{0, 0, 0, 0, 1.0}
	adults := g.Adults()
	for i := range want {
		if adults[i] != want[i] {
			t.Fatalf("adults = %v, want %v", adults, want)
		}
	}
	if got := s.Value(); math.Abs(got-0.2) > eps {
		t.Errorf("Value() = %v, want 0.2", got)
	}
	if len(s.History) != 1 || s.History[0] != 0 {
		t.Errorf("History = %v, want [0]", s.History)
	}
}

func TestGenerational_FixedLength(t *testing.T) {
	g := NewGenerational(3)
	for i := 0; i < 10; i++ {
		g.Nudge(float64(i%2), 1.0)
		g.Advance()
	}
	if n := len(g.Adults()); n != 3 {
		t.Errorf("len(adults) = %d, want 3", n)
	}
}

func TestGenerational_Set(t *testing.T) {
	g := NewGenerational(0)
	g.Set(0.4)

	if g.Children() != 0.4 {
		t.Errorf("children = %v, want 0.4", g.Children())
	}
	adults := g.Adults()
	if len(adults) != DefaultGenerations {
		t.Fatalf("len(adults) = %d, want %d", len(adults), DefaultGenerations)
	}
	for i, v := range adults {
		if v != 0.4 {
			t.Errorf("adults[%d] = %v, want 0.4", i, v)
		}
	}
}

func TestGenerational_AnchoredHolds(t *testing.T) {
	s := NewSettlement(0, 0, 0, NewGenerational(5))
	s.Anchor(1.0)
	for i := 0; i < 12; i++ {
		s.NewGeneration()
		s.Update(0.0)
	}
	if s.Value() != 1.0 {
		t.Errorf("anchored generational value = %v, want 1", s.Value())
	}
}

func TestPlain_Update(t *testing.T) {
	tests := []struct {
		name   string
		start  float64
		rate   float64
		target float64
		want   float64
	}{
		{"full rate copies target", 0.2, 1.0, 0.8, 0.8},
		{"half rate moves halfway", 0.2, 0.5, 0.8, 0.5},
		{"zero rate holds", 0.2, 0.0, 0.8, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSettlement(0, 0, 0, &Plain{})
			s.SetValue(tt.start)
			s.RateOfChange = tt.rate
			s.Update(tt.target)
			if math.Abs(s.Value()-tt.want) > eps {
				t.Errorf("Value() = %v, want %v", s.Value(), tt.want)
			}
		})
	}
}

func TestJitter_Clamped(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, start := range []float64{0, 0.5, 1} {
		p := &Plain{}
		p.Set(start)
		for i := 0; i < 200; i++ {
			p.Jitter(rng, 0.3)
			if v := p.Value(); v < 0 || v > 1 {
				t.Fatalf("jittered value %v outside [0, 1]", v)
			}
		}
	}
}

func TestParseModel(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Model
	}{
		{"", ModelPlain},
		{"plain", ModelPlain},
		{"generational", ModelGenerational},
	} {
		got, err := ParseModel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseModel(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseModel("cohort"); err == nil {
		t.Error("ParseModel(cohort) returned nil error")
	}
}
