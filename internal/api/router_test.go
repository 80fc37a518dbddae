package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brawler/internal/game"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockEngine implements EngineInterface without a tick loop.
type mockEngine struct {
	mu         sync.Mutex
	characters map[game.CharacterID]game.CharacterSnapshot
	order      []game.CharacterID
	submitted  []game.Command
	limit      int
	queueFull  bool
	nextID     int
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		characters: make(map[game.CharacterID]game.CharacterSnapshot),
		limit:      100,
	}
}

func (m *mockEngine) GetSnapshot() *game.GameSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &game.GameSnapshot{TickNumber: 42}
	for _, id := range m.order {
		c := m.characters[id]
		snap.Characters = append(snap.Characters, c)
		if c.HP > 0 {
			snap.AliveCount++
		}
	}
	snap.CharacterCount = len(snap.Characters)
	return snap
}

func (m *mockEngine) Stats() game.EngineStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return game.EngineStats{Tick: 42, Characters: len(m.order)}
}

func (m *mockEngine) State(id game.CharacterID) (game.CharacterSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.characters[id]
	return c, ok
}

func (m *mockEngine) Spawn(opts game.SpawnOptions) (game.CharacterSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) >= m.limit {
		return game.CharacterSnapshot{}, game.ErrCharacterLimit
	}
	if opts.Chain == "" {
		opts.Chain = game.DefaultChain
	}
	if _, err := game.DefaultMoveset().Chain(opts.Chain); err != nil {
		return game.CharacterSnapshot{}, err
	}
	if opts.ID == "" {
		m.nextID++
		opts.ID = game.CharacterID(fmt.Sprintf("c%d", m.nextID))
	}
	if _, exists := m.characters[opts.ID]; exists {
		return game.CharacterSnapshot{}, fmt.Errorf("%w: %s", game.ErrDuplicateCharacter, opts.ID)
	}
	maxHP := opts.MaxHealth
	if maxHP == 0 {
		maxHP = game.DefaultMaxHealth
	}
	c := game.CharacterSnapshot{
		ID:         opts.ID,
		Name:       opts.Name,
		Team:       opts.Team,
		Controller: opts.Controller,
		Position:   opts.Position,
		Yaw:        opts.Yaw,
		HP:         maxHP,
		MaxHP:      maxHP,
		Chain:      opts.Chain,
	}
	m.characters[c.ID] = c
	m.order = append(m.order, c.ID)
	return c, nil
}

func (m *mockEngine) Remove(id game.CharacterID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.characters[id]; !ok {
		return false
	}
	delete(m.characters, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

func (m *mockEngine) Submit(cmd game.Command) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queueFull {
		return false
	}
	m.submitted = append(m.submitted, cmd)
	return true
}

func (m *mockEngine) Heal(id game.CharacterID, amount int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.characters[id]
	if !ok || c.HP <= 0 {
		return 0, false
	}
	before := c.HP
	c.HP += amount
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
	m.characters[id] = c
	return c.HP - before, true
}

func (m *mockEngine) Moveset() *game.Moveset {
	return game.DefaultMoveset()
}

func (m *mockEngine) commands() []game.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]game.Command(nil), m.submitted...)
}

// ============================================================================
// Helpers
// ============================================================================

func newTestServer(t *testing.T, engine EngineInterface) *httptest.Server {
	t.Helper()
	limiter := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 1000,
		Burst:             1000,
		CleanupInterval:   time.Hour,
	})
	t.Cleanup(limiter.Stop)

	ts := httptest.NewServer(NewRouter(RouterConfig{
		Engine:         engine,
		RateLimiter:    limiter,
		DisableLogging: true,
	}))
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ============================================================================
// API Endpoint Tests
// ============================================================================

// TestNewRouterHasNoSideEffects builds a router without opening listeners.
func TestNewRouterHasNoSideEffects(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, CleanupInterval: time.Hour})
	defer limiter.Stop()

	router := NewRouter(RouterConfig{Engine: newMockEngine(), RateLimiter: limiter, DisableLogging: true})
	require.NotNil(t, router)
}

func TestAPIHealth(t *testing.T) {
	ts := newTestServer(t, newMockEngine())

	resp := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPISpawnAndGetState(t *testing.T) {
	engine := newMockEngine()
	ts := newTestServer(t, engine)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/characters", map[string]interface{}{
		"id": "red", "name": "Red", "team": "r", "controller": "ai", "x": 2, "z": -1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/api/characters/red", resp.Header.Get("Location"))
	created := decode(t, resp)
	assert.Equal(t, "red", created["id"])
	assert.Equal(t, float64(game.DefaultMaxHealth), created["hp"])

	c, ok := engine.State("red")
	require.True(t, ok)
	assert.Equal(t, game.ControllerAI, c.Controller)
	assert.Equal(t, game.Vec3{X: 2, Z: -1}, c.Position)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/characters", map[string]interface{}{"name": "Blue"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode(t, resp)
	chars, ok := state["characters"].([]interface{})
	require.True(t, ok, "state should carry a characters array")
	assert.Len(t, chars, 2)
	assert.Equal(t, float64(2), state["characterCount"])

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/characters/red", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Red", decode(t, resp)["name"])
}

func TestAPISpawnErrors(t *testing.T) {
	engine := newMockEngine()
	ts := newTestServer(t, engine)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/characters", map[string]interface{}{"id": "a"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"duplicate id", map[string]interface{}{"id": "a"}, http.StatusConflict},
		{"unknown chain", map[string]interface{}{"chain": "nope"}, http.StatusBadRequest},
		{"negative health", map[string]interface{}{"maxHealth": -5}, http.StatusBadRequest},
		{"not json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, ts.URL+"/api/characters", tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.NotEmpty(t, decode(t, resp)["error"])
		})
	}

	engine.mu.Lock()
	engine.limit = 1
	engine.mu.Unlock()
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/characters", map[string]interface{}{"id": "b"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAPICommandsAreQueued(t *testing.T) {
	engine := newMockEngine()
	_, err := engine.Spawn(game.SpawnOptions{ID: "a"})
	require.NoError(t, err)
	ts := newTestServer(t, engine)

	base := ts.URL + "/api/characters/a"
	resp := doJSON(t, http.MethodPost, base+"/attack", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{"queued": "attack", "character": "a"}, decode(t, resp))

	resp = doJSON(t, http.MethodPost, base+"/dash", map[string]float64{"x": 1, "z": 0})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, base+"/teleport", map[string]float64{"x": 3, "z": 4})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, base+"/target", map[string]string{"target": "b"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, base+"/interrupt", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	cmds := engine.commands()
	require.Len(t, cmds, 5)
	assert.Equal(t, game.Command{Kind: game.CommandAttack, Character: "a"}, cmds[0])
	assert.Equal(t, game.Command{Kind: game.CommandDash, Character: "a", Vector: game.Vec3{X: 1}}, cmds[1])
	assert.Equal(t, game.Vec3{X: 3, Z: 4}, cmds[2].Vector)
	assert.Equal(t, game.CharacterID("b"), cmds[3].Target)
	assert.Equal(t, game.CommandInterrupt, cmds[4].Kind)
}

func TestAPICommandErrors(t *testing.T) {
	engine := newMockEngine()
	_, err := engine.Spawn(game.SpawnOptions{ID: "a"})
	require.NoError(t, err)
	ts := newTestServer(t, engine)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/characters/ghost/attack", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/characters/a/move", "sideways")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	engine.mu.Lock()
	engine.queueFull = true
	engine.mu.Unlock()
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/characters/a/attack", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	assert.Empty(t, engine.commands())
}

func TestAPIHealAndRemove(t *testing.T) {
	engine := newMockEngine()
	_, err := engine.Spawn(game.SpawnOptions{ID: "a", MaxHealth: 100})
	require.NoError(t, err)
	engine.characters["a"] = func() game.CharacterSnapshot {
		c := engine.characters["a"]
		c.HP = 50
		return c
	}()
	ts := newTestServer(t, engine)

	// zero amount falls back to the default heal
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/characters/a/heal", map[string]int{"amount": 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(20), decode(t, resp)["healed"])

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/characters/a/heal", map[string]int{"amount": 5000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(30), decode(t, resp)["healed"])

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/characters/a", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/characters/a", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/characters/a/heal", map[string]int{"amount": 5})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIStatsAndMovesets(t *testing.T) {
	engine := newMockEngine()
	ts := newTestServer(t, engine)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode(t, resp)
	assert.Equal(t, float64(42), stats["tick"])
	assert.Contains(t, stats, "engine")

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/movesets", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Chains []string `json:"chains"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, game.DefaultMoveset().Names(), body.Chains)
	assert.Contains(t, body.Chains, game.DefaultChain)
}

func TestAPICORSAllowsLocalhost(t *testing.T) {
	ts := newTestServer(t, newMockEngine())

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPIRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2, CleanupInterval: time.Hour})
	defer limiter.Stop()
	ts := httptest.NewServer(NewRouter(RouterConfig{
		Engine:         newMockEngine(),
		RateLimiter:    limiter,
		DisableLogging: true,
	}))
	defer ts.Close()

	for i := 0; i < 2; i++ {
		resp := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, map[string]uint64{"allowed": 2, "rejected": 1}, limiter.GetStats())
}

// ============================================================================
// WebSocket Command Tests
// ============================================================================

func TestHandleCommand(t *testing.T) {
	engine := newMockEngine()
	hub := NewWebSocketHub(engine, nil)

	hub.handleCommand("127.0.0.1", wsCommand{Character: "a", Kind: "dash", X: 1})
	hub.handleCommand("127.0.0.1", wsCommand{Character: "a", Kind: "target", Target: "b"})
	hub.handleCommand("127.0.0.1", wsCommand{Character: "a", Kind: "fly"})
	hub.handleCommand("127.0.0.1", wsCommand{Kind: "attack"})

	cmds := engine.commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, game.Command{Kind: game.CommandDash, Character: "a", Vector: game.Vec3{X: 1}}, cmds[0])
	assert.Equal(t, game.Command{Kind: game.CommandTarget, Character: "a", Target: "b"}, cmds[1])
}
