package api

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/talgya/lingnet/internal/engine"
	"github.com/talgya/lingnet/internal/strategy"
	"github.com/talgya/lingnet/internal/world"
)

// chainSim runs two rounds over a three-village chain 0-1-2 seeded at 0.
func chainSim(t *testing.T) *engine.Simulation {
	t.Helper()
	w := &world.World{Size: 20, Density: 1}
	for i, x := range []float64{0, 4, 8} {
		s := world.NewSettlement(world.ID(i), x, 0, nil)
		s.Name = []string{"Ashford", "Brindle", "Corwick"}[i]
		w.Settlements = append(w.Settlements, s)
	}
	for _, l := range [][2]world.ID{{0, 1}, {1, 2}} {
		if _, err := w.Connect(l[0], l[1]); err != nil {
			t.Fatal(err)
		}
	}

	sim := engine.NewSimulation(w, rand.New(rand.NewSource(1)))
	if err := sim.Seed(strategy.SingleLocusUnchangingLargest); err != nil {
		t.Fatal(err)
	}
	err := sim.Run(engine.Phase{
		Rounds:    2,
		Weighting: strategy.Weighting{Method: strategy.NeighborWeighted, Influence: 1},
		Learning:  strategy.Learning{Method: strategy.CopyInput},
	})
	if err != nil {
		t.Fatal(err)
	}
	return sim
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	sim := chainSim(t)
	srv := &Server{Sim: sim, RunID: "abc"}
	rec := get(t, srv.Handler(), "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["rounds"] != 2.0 || body["settlements"] != 3.0 || body["edges"] != 2.0 {
		t.Errorf("status = %v", body)
	}
	if body["state"] != "finished" || body["run_id"] != "abc" {
		t.Errorf("state/run_id = %v/%v", body["state"], body["run_id"])
	}
}

func TestSettlements_AtRound(t *testing.T) {
	sim := chainSim(t)
	h := (&Server{Sim: sim}).Handler()

	rec := get(t, h, "/api/v1/settlements?t=0")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var views []world.View
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 3 {
		t.Fatalf("len(views) = %d, want 3", len(views))
	}
	for _, v := range views {
		want := 0.0
		if v.ID == 0 {
			want = 1.0
		}
		if v.Value != want {
			t.Errorf("settlement %d at round 0 = %v, want %v", v.ID, v.Value, want)
		}
	}

	now := get(t, h, "/api/v1/settlements")
	if err := json.Unmarshal(now.Body.Bytes(), &views); err != nil {
		t.Fatal(err)
	}
	if views[2].Value <= 0 {
		t.Errorf("far end current value = %v, want spread after two rounds", views[2].Value)
	}

	if rec := get(t, h, "/api/v1/settlements?t=5"); rec.Code != http.StatusNotFound {
		t.Errorf("unrecorded round status = %d, want 404", rec.Code)
	}
	if rec := get(t, h, "/api/v1/settlements?t=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad round status = %d, want 400", rec.Code)
	}
}

func TestSettlementDetail(t *testing.T) {
	sim := chainSim(t)
	h := (&Server{Sim: sim}).Handler()

	rec := get(t, h, "/api/v1/settlement/0")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Settlement world.View `json:"settlement"`
		Anchored   bool       `json:"anchored"`
		Neighbors  []struct {
			ID     world.ID `json:"id"`
			Weight float64  `json:"weight"`
		} `json:"neighbors"`
		Indirect []world.ID `json:"indirect_neighbors"`
		History  []float64  `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Settlement.Name != "Ashford" || !body.Anchored {
		t.Errorf("settlement = %+v anchored=%v", body.Settlement, body.Anchored)
	}
	if len(body.Neighbors) != 1 || body.Neighbors[0].ID != 1 || body.Neighbors[0].Weight != 0.5 {
		t.Errorf("neighbors = %+v", body.Neighbors)
	}
	if len(body.Indirect) != 1 || body.Indirect[0] != 2 {
		t.Errorf("indirect = %v, want [2]", body.Indirect)
	}
	if len(body.History) != 2 {
		t.Errorf("history = %v", body.History)
	}
}

func TestSettlementDetail_Errors(t *testing.T) {
	h := (&Server{Sim: chainSim(t)}).Handler()
	if rec := get(t, h, "/api/v1/settlement/99"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown settlement status = %d, want 404", rec.Code)
	}
	if rec := get(t, h, "/api/v1/settlement/-1"); rec.Code != http.StatusNotFound {
		t.Errorf("negative settlement status = %d, want 404", rec.Code)
	}
	if rec := get(t, h, "/api/v1/settlement/x"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}

func TestEdgesAndStats(t *testing.T) {
	h := (&Server{Sim: chainSim(t)}).Handler()

	var edges []world.Edge
	if err := json.Unmarshal(get(t, h, "/api/v1/edges").Body.Bytes(), &edges); err != nil {
		t.Fatal(err)
	}
	if len(edges) != 2 || edges[0] != (world.Edge{A: 0, B: 1, Weight: 0.5}) {
		t.Errorf("edges = %+v", edges)
	}

	var stats []engine.RoundStats
	if err := json.Unmarshal(get(t, h, "/api/v1/stats/history?from=1").Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0].Round != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGeoJSON(t *testing.T) {
	h := (&Server{Sim: chainSim(t)}).Handler()
	rec := get(t, h, "/api/v1/geojson?t=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var fc struct {
		Type     string           `json:"type"`
		Features []map[string]any `json:"features"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 5 {
		t.Errorf("type=%q features=%d, want FeatureCollection with 5", fc.Type, len(fc.Features))
	}
}

func TestRateLimit(t *testing.T) {
	srv := &Server{Sim: chainSim(t), Limiter: NewRateLimiter(1, 2)}
	h := srv.Handler()

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = get(t, h, "/api/v1/edges").Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want 200 200 429", codes)
	}
	if srv.Limiter.Len() != 1 {
		t.Errorf("tracked IPs = %d, want 1", srv.Limiter.Len())
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:4321"
	if got := clientIP(req); got != "10.0.0.5" {
		t.Errorf("clientIP = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Errorf("clientIP with XFF = %q", got)
	}
}
