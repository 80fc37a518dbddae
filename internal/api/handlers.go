package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"brawler/internal/game"

	"github.com/go-chi/chi/v5"
)

// MaxHealAmount caps a single heal request.
const MaxHealAmount = 1000

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	// Clone so the pool can reuse the slot while we encode
	writeJSON(w, h.engine.GetSnapshot().Clone())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snapshot := h.engine.GetSnapshot()
	writeJSON(w, map[string]interface{}{
		"characterCount": snapshot.CharacterCount,
		"aliveCount":     snapshot.AliveCount,
		"totalAttacks":   snapshot.TotalAttacks,
		"totalHits":      snapshot.TotalHits,
		"totalDeaths":    snapshot.TotalDeaths,
		"tick":           snapshot.TickNumber,
		"engine":         h.engine.Stats(),
	})
}

func (h *routerHandlers) handleGetMovesets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]string{"chains": h.engine.Moveset().Names()})
}

func (h *routerHandlers) handleSpawn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID         string  `json:"id"`
		Name       string  `json:"name"`
		Team       string  `json:"team"`
		Controller string  `json:"controller"`
		Chain      string  `json:"chain"`
		MaxHealth  int     `json:"maxHealth"`
		X          float64 `json:"x"`
		Z          float64 `json:"z"`
		Yaw        float64 `json:"yaw"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if !finite(req.X, req.Z, req.Yaw) {
		writeError(w, "Position must be finite", http.StatusBadRequest)
		return
	}
	if req.MaxHealth < 0 {
		writeError(w, "maxHealth must not be negative", http.StatusBadRequest)
		return
	}

	c, err := h.engine.Spawn(game.SpawnOptions{
		ID:         game.CharacterID(req.ID),
		Name:       req.Name,
		Team:       req.Team,
		Controller: game.ParseController(req.Controller),
		Chain:      req.Chain,
		MaxHealth:  req.MaxHealth,
		Position:   game.Vec3{X: req.X, Z: req.Z},
		Yaw:        req.Yaw,
	})
	switch {
	case errors.Is(err, game.ErrCharacterLimit):
		// DoS protection
		writeError(w, "Character limit reached", http.StatusServiceUnavailable)
		return
	case errors.Is(err, game.ErrDuplicateCharacter):
		writeError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Location", "/api/characters/"+string(c.ID))
	writeJSONStatus(w, http.StatusCreated, c)
}

func (h *routerHandlers) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	c, ok := h.engine.State(characterID(r))
	if !ok {
		writeError(w, "Character not found", http.StatusNotFound)
		return
	}
	writeJSON(w, c)
}

func (h *routerHandlers) handleRemove(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Remove(characterID(r)) {
		writeError(w, "Character not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *routerHandlers) handleAttack(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, game.Command{Kind: game.CommandAttack})
}

func (h *routerHandlers) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, game.Command{Kind: game.CommandInterrupt})
}

func (h *routerHandlers) handleMove(w http.ResponseWriter, r *http.Request) {
	h.submitVector(w, r, game.CommandMove)
}

func (h *routerHandlers) handleDash(w http.ResponseWriter, r *http.Request) {
	h.submitVector(w, r, game.CommandDash)
}

func (h *routerHandlers) handleTeleport(w http.ResponseWriter, r *http.Request) {
	h.submitVector(w, r, game.CommandTeleport)
}

func (h *routerHandlers) handleTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	h.submit(w, r, game.Command{Kind: game.CommandTarget, Target: game.CharacterID(req.Target)})
}

func (h *routerHandlers) handleHeal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	amount := req.Amount
	if amount <= 0 {
		amount = 20
	}
	if amount > MaxHealAmount {
		amount = MaxHealAmount
	}

	healed, ok := h.engine.Heal(characterID(r), amount)
	if !ok {
		writeError(w, "Character not found or dead", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]int{"healed": healed})
}

// submitVector decodes {x, y, z} and queues it as kind.
func (h *routerHandlers) submitVector(w http.ResponseWriter, r *http.Request, kind game.CommandKind) {
	var v game.Vec3
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if !finite(v.X, v.Y, v.Z) {
		writeError(w, "Vector must be finite", http.StatusBadRequest)
		return
	}
	h.submit(w, r, game.Command{Kind: kind, Vector: v})
}

// submit queues cmd for the character in the URL. Commands are applied on
// the next tick, so success means accepted rather than performed.
func (h *routerHandlers) submit(w http.ResponseWriter, r *http.Request, cmd game.Command) {
	cmd.Character = characterID(r)
	if _, ok := h.engine.State(cmd.Character); !ok {
		writeError(w, "Character not found", http.StatusNotFound)
		return
	}
	if !h.engine.Submit(cmd) {
		w.Header().Set("Retry-After", "1")
		writeError(w, "Command queue full", http.StatusServiceUnavailable)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]string{
		"queued":    cmd.Kind.String(),
		"character": string(cmd.Character),
	})
}

func characterID(r *http.Request) game.CharacterID {
	return game.CharacterID(chi.URLParam(r, "id"))
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSONStatus(w, code, map[string]string{"error": message})
}
