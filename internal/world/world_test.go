package world

import (
	"errors"
	"math"
	"testing"
)

const eps = 1e-9

func newTestWorld(points ...[2]float64) *World {
	w := &World{}
	for i, p := range points {
		w.Settlements = append(w.Settlements, NewSettlement(ID(i), p[0], p[1], &Plain{}))
	}
	return w
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		a, b Kind
		want float64
	}{
		{KindVillage, KindVillage, 8},
		{KindTown, KindVillage, 12},
		{KindVillage, KindTown, 12},
		{KindTown, KindTown, 20},
		{KindCity, KindVillage, 15},
		{KindVillage, KindCity, 15},
		{KindCity, KindTown, 25},
		{KindTown, KindCity, 25},
		{KindCity, KindCity, 30},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"-"+tt.b.String(), func(t *testing.T) {
			got, err := Threshold(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Threshold() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Threshold(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestThreshold_UnsupportedPair(t *testing.T) {
	_, err := Threshold(Kind(9), KindVillage)
	if !errors.Is(err, ErrUnsupportedPair) {
		t.Errorf("Threshold() error = %v, want ErrUnsupportedPair", err)
	}
}

func TestKindSize(t *testing.T) {
	if KindVillage.Size() != 1 || KindTown.Size() != 2 || KindCity.Size() != 5 {
		t.Errorf("sizes = %d/%d/%d, want 1/2/5", KindVillage.Size(), KindTown.Size(), KindCity.Size())
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindVillage, KindTown, KindCity} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("hamlet"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(hamlet) error = %v, want ErrUnknownKind", err)
	}
}

func TestConnect_VillageWeight(t *testing.T) {
	w := newTestWorld([2]float64{0, 0}, [2]float64{3, 4})

	added, err := w.Connect(0, 1)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !added {
		t.Fatal("Connect() did not add an edge at distance 5")
	}

	want := (8.0 - 5.0) / 8.0
	if got := w.Get(0).Neighbors[1]; math.Abs(got-want) > eps {
		t.Errorf("weight 0→1 = %v, want %v", got, want)
	}
	if got := w.Get(1).Neighbors[0]; math.Abs(got-want) > eps {
		t.Errorf("weight 1→0 = %v, want %v", got, want)
	}
}

func TestConnect_TooFar(t *testing.T) {
	w := newTestWorld([2]float64{0, 0}, [2]float64{8, 0})

	added, err := w.Connect(0, 1)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if added || w.Connected(0, 1) {
		t.Error("Connect() linked settlements at exactly the threshold distance")
	}
}

func TestConnect_KeepsFirstWeight(t *testing.T) {
	w := newTestWorld([2]float64{0, 0}, [2]float64{4, 0})
	if _, err := w.Connect(0, 1); err != nil {
		t.Fatal(err)
	}
	first := w.Get(0).Neighbors[1]

	w.Get(0).Kind = KindTown
	added, err := w.Connect(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Error("Connect() re-added an existing edge")
	}
	if got := w.Get(1).Neighbors[0]; got != first {
		t.Errorf("weight changed from %v to %v", first, got)
	}
}

func TestConnect_CoLocated(t *testing.T) {
	w := newTestWorld([2]float64{2, 2}, [2]float64{2, 2})
	if _, err := w.Connect(0, 1); err != nil {
		t.Fatal(err)
	}
	if got := w.Get(0).Neighbors[1]; got != 1.0 {
		t.Errorf("co-located weight = %v, want 1", got)
	}
	if added, _ := w.Connect(0, 0); added {
		t.Error("Connect() linked a settlement to itself")
	}
}

func TestEdges_NoDuplicates(t *testing.T) {
	w := newTestWorld([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0})
	for _, p := range [][2]ID{{0, 1}, {1, 2}, {0, 2}} {
		if _, err := w.Connect(p[0], p[1]); err != nil {
			t.Fatal(err)
		}
	}

	edges := w.Edges()
	if len(edges) != 3 {
		t.Fatalf("len(Edges()) = %d, want 3", len(edges))
	}
	seen := make(map[[2]ID]bool)
	for _, e := range edges {
		if e.A >= e.B {
			t.Errorf("edge %d-%d not ordered", e.A, e.B)
		}
		key := [2]ID{e.A, e.B}
		if seen[key] {
			t.Errorf("duplicate edge %v", key)
		}
		seen[key] = true
	}
}

func TestIndirectNeighbors(t *testing.T) {
	// 0 - 1 - 2 - 3 in a line, 6 apart so only adjacent pairs connect.
	w := newTestWorld([2]float64{0, 0}, [2]float64{6, 0}, [2]float64{12, 0}, [2]float64{18, 0})
	for i := 0; i < 3; i++ {
		if _, err := w.Connect(ID(i), ID(i+1)); err != nil {
			t.Fatal(err)
		}
	}

	got := w.IndirectNeighbors(0)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("IndirectNeighbors(0) = %v, want [2]", got)
	}
	got = w.IndirectNeighbors(1)
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("IndirectNeighbors(1) = %v, want [3]", got)
	}
}

func TestValueAt_OutOfRange(t *testing.T) {
	s := NewSettlement(0, 0, 0, nil)
	s.NewGeneration()

	if _, err := s.ValueAt(0); err != nil {
		t.Errorf("ValueAt(0) error = %v", err)
	}
	for _, round := range []int{-1, 1, 10} {
		if _, err := s.ValueAt(round); !errors.Is(err, ErrRoundOutOfRange) {
			t.Errorf("ValueAt(%d) error = %v, want ErrRoundOutOfRange", round, err)
		}
	}
}

func TestLast_NoHistory(t *testing.T) {
	s := NewSettlement(0, 0, 0, nil)
	if _, err := s.Last(); !errors.Is(err, ErrNoHistory) {
		t.Errorf("Last() error = %v, want ErrNoHistory", err)
	}
}

func TestView(t *testing.T) {
	s := NewSettlement(3, 4, 7, nil)
	s.Kind = KindTown
	s.SetValue(0.25)
	s.NewGeneration()
	s.SetValue(0.75)

	now, err := s.View(Now)
	if err != nil {
		t.Fatal(err)
	}
	if now.X != 4 || now.Y != 7 || now.Type != KindTown || now.Size != 2 || now.Value != 0.75 {
		t.Errorf("View(Now) = %+v", now)
	}

	past, err := s.View(0)
	if err != nil {
		t.Fatal(err)
	}
	if past.Value != 0.25 {
		t.Errorf("View(0).Value = %v, want 0.25", past.Value)
	}

	if _, err := s.View(1); !errors.Is(err, ErrRoundOutOfRange) {
		t.Errorf("View(1) error = %v, want ErrRoundOutOfRange", err)
	}
}

func TestMeanHistory(t *testing.T) {
	w := newTestWorld([2]float64{0, 0}, [2]float64{1, 1})
	w.Get(0).SetValue(1.0)
	for _, s := range w.Settlements {
		s.NewGeneration()
	}
	w.Get(1).SetValue(1.0)
	for _, s := range w.Settlements {
		s.NewGeneration()
	}

	got := w.MeanHistory()
	want := []float64{0.5, 1.0}
	if len(got) != len(want) {
		t.Fatalf("MeanHistory() = %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > eps {
			t.Errorf("MeanHistory()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
