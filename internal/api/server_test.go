package api

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/talgya/townsim/internal/engine"
	"github.com/talgya/townsim/internal/grid"
	"github.com/talgya/townsim/internal/heatmap"
	"github.com/talgya/townsim/internal/mobs"
	"github.com/talgya/townsim/internal/world"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	w := world.New(10, 10)
	maps := heatmap.NewMaps(10, 10)
	w.PlaceStatic(grid.Point{X: 5, Y: 5}, world.StaticDungeon, maps)
	maps.RebuildAll(w.Blocked)

	rng := rand.New(rand.NewSource(1))
	lang := mobs.NewLanguage(rng)
	sim := engine.NewSimulation(w, maps, mobs.Registry{}, lang, rng)
	sim.SpawnMob(grid.Point{X: 0, Y: 0}, &mobs.Mobile{
		Name:    "Test Mob",
		Desires: map[heatmap.Tag]float64{heatmap.TagAdventure: 1.0},
	})

	return &Server{
		Sim:      sim,
		Eng:      engine.NewEngine(),
		AdminKey: "hunter2",
		RunID:    "test-run",
		Seed:     1,
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad JSON: %v: %s", err, rec.Body.String())
	}
	return body
}

func TestHandleStatus(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	body := decode(t, rec)
	if body["run_id"] != "test-run" {
		t.Fatalf("run_id lost: %v", body)
	}
	if body["population"].(float64) != 1 {
		t.Fatalf("want population 1, got %v", body["population"])
	}
}

func TestHandleMobs(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleMobs(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mobs", nil))

	body := decode(t, rec)
	mobsList := body["mobs"].([]any)
	if len(mobsList) != 1 {
		t.Fatalf("want 1 mob, got %d", len(mobsList))
	}
}

func TestHandleMap(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleMap(rec, httptest.NewRequest(http.MethodGet, "/api/v1/map", nil))

	body := decode(t, rec)
	if body["width"].(float64) != 10 {
		t.Fatalf("want width 10, got %v", body["width"])
	}
	fixtures := body["fixtures"].([]any)
	if len(fixtures) != 1 {
		t.Fatalf("want 1 fixture, got %v", fixtures)
	}
	kind := fixtures[0].(map[string]any)["kind"]
	if kind != "dungeon" {
		t.Fatalf("want a dungeon fixture, got %v", kind)
	}
}

func TestHandleHeatmap(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleHeatmap(rec, httptest.NewRequest(http.MethodGet, "/api/v1/heatmap/adventure", nil))

	body := decode(t, rec)
	if body["tag"] != "adventure" {
		t.Fatalf("wrong tag: %v", body["tag"])
	}
	rows := body["rows"].([]any)
	if len(rows) != 10 {
		t.Fatalf("want 10 rows, got %d", len(rows))
	}
	// The source cell itself is at distance 0.
	if rows[5].([]any)[5].(float64) != 0 {
		t.Fatalf("source cell should be 0: %v", rows[5])
	}
}

func TestHandleHeatmapUnknownTag(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleHeatmap(rec, httptest.NewRequest(http.MethodGet, "/api/v1/heatmap/sorrow", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
}

func TestHandleEventsLimitValidation(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleEvents(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=9999", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	s := testServer(t)
	handler := s.adminOnly(s.handleSpeed)

	// GET is rejected outright.
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/speed", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("want 405 for GET, got %d", rec.Code)
	}

	// POST without the bearer token is unauthorized.
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed":2}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 without token, got %d", rec.Code)
	}

	// With the token the speed changes.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed":2}`))
	req.Header.Set("Authorization", "Bearer hunter2")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}
	if s.Eng.Speed() != 2 {
		t.Fatalf("speed not applied: %v", s.Eng.Speed())
	}
}

func TestSpeedValidation(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleSpeed(rec, httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed":-3}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for negative speed, got %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)
	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("4th request should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients are unaffected")
	}
	if rl.RetryAfter("1.2.3.4") < 1 {
		t.Fatal("retry-after should be at least 1s")
	}
}
