package game

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"brawler/internal/config"
	"brawler/internal/game/spatial"
)

// DefaultChain is the moveset chain used when a spawn names none.
const DefaultChain = "brawler"

// DefaultMaxHealth is used when a spawn gives no max health.
const DefaultMaxHealth = 100

var (
	ErrCharacterLimit     = errors.New("character limit reached")
	ErrDuplicateCharacter = errors.New("character already exists")
	ErrNoWorld            = errors.New("engine needs a world")
)

// CommandKind identifies a queued input.
type CommandKind uint8

const (
	CommandAttack CommandKind = iota + 1
	CommandMove
	CommandDash
	CommandTeleport
	CommandTarget
	CommandInterrupt
)

func (k CommandKind) String() string {
	switch k {
	case CommandAttack:
		return "attack"
	case CommandMove:
		return "move"
	case CommandDash:
		return "dash"
	case CommandTeleport:
		return "teleport"
	case CommandTarget:
		return "target"
	case CommandInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// ParseCommandKind is the inverse of CommandKind.String.
func ParseCommandKind(s string) (CommandKind, bool) {
	for k := CommandAttack; k <= CommandInterrupt; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Command is an input submitted from outside the tick goroutine. It is
// applied at the start of the next tick.
type Command struct {
	Kind      CommandKind
	Character CharacterID
	Vector    Vec3        // move/dash direction or teleport destination
	Target    CharacterID // CommandTarget only; empty clears
}

// TickStats is reported to EngineConfig.OnTick after every tick.
type TickStats struct {
	Tick       uint64
	Duration   time.Duration // wall time spent in the tick
	Characters int
	Alive      int
	Deadlines  int
	Commands   int
	Fired      int
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Sim      config.SimConfig
	Combat   config.CombatConfig
	Moveset  *Moveset // DefaultMoveset when nil
	World    World
	Hooks    Hooks // NopHooks when nil
	Limits   SnapshotLimits
	EventLog *EventLog // a stopped log (drops everything) when nil

	// OnTick runs inside the tick with the engine locked; it must not call
	// back into the engine.
	OnTick func(TickStats)
}

// Engine owns every character and runs the fixed-step simulation.
type Engine struct {
	mu sync.RWMutex

	sim    config.SimConfig
	tuning *config.CombatConfig

	characters map[CharacterID]*Character
	order      []*Character // sorted by ID; the deterministic tick order
	owners     bodyIndex
	nextBody   BodyID

	world    World
	sched    *Scheduler
	detector *HitDetector
	impact   *ImpactResolver
	targeter *NearestHostileTargeter
	moveset  *Moveset
	hooks    Hooks

	// Inputs from other goroutines (MPSC)
	commands        *spatial.LockFreeQueue[Command]
	commandBuf      []Command
	droppedCommands uint64 // atomic

	now       time.Duration
	tickCount uint64

	// Stats
	totalAttacks uint64
	totalHits    uint64
	totalDeaths  uint64

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	// Snapshot system for lock-free reads
	snapshotPool *SnapshotPool

	// Event sourcing for replay and debugging
	eventLog *EventLog

	onTick func(TickStats)
}

// bodyIndex maps geometry bodies to their owners.
type bodyIndex map[BodyID]*Character

func (b bodyIndex) OwnerOf(id BodyID) (*Character, bool) {
	c, ok := b[id]
	return c, ok
}

// NewEngine creates an engine at simulation time zero.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.World == nil {
		return nil, ErrNoWorld
	}
	if cfg.Moveset == nil {
		cfg.Moveset = DefaultMoveset()
	}
	if cfg.Hooks == nil {
		cfg.Hooks = NopHooks{}
	}
	if cfg.EventLog == nil {
		cfg.EventLog = NewEventLog()
	}
	if cfg.Limits.MaxCharacters <= 0 {
		cfg.Limits = DefaultSnapshotLimits
	}
	if cfg.Sim.CommandQueue <= 0 {
		cfg.Sim.CommandQueue = config.DefaultSim().CommandQueue
	}
	if cfg.Sim.MaxCharacters <= 0 {
		cfg.Sim.MaxCharacters = config.DefaultSim().MaxCharacters
	}
	if cfg.Sim.GridCellSize <= 0 {
		cfg.Sim.GridCellSize = config.DefaultSim().GridCellSize
	}

	tuning := cfg.Combat
	bounds := DefaultBounds
	if bw, ok := cfg.World.(boundedWorld); ok {
		bounds = bw.Bounds()
	}

	e := &Engine{
		sim:          cfg.Sim,
		tuning:       &tuning,
		characters:   make(map[CharacterID]*Character),
		order:        make([]*Character, 0, cfg.Sim.MaxCharacters),
		owners:       make(bodyIndex),
		world:        cfg.World,
		sched:        NewScheduler(),
		impact:       NewImpactResolver(&tuning),
		moveset:      cfg.Moveset,
		hooks:        cfg.Hooks,
		commands:     spatial.NewLockFreeQueue[Command](cfg.Sim.CommandQueue),
		commandBuf:   make([]Command, cfg.Sim.CommandQueue),
		stopChan:     make(chan struct{}),
		snapshotPool: NewSnapshotPool(cfg.Limits),
		eventLog:     cfg.EventLog,
		onTick:       cfg.OnTick,
	}
	e.detector = NewHitDetector(cfg.World, e.owners, tuning.EyeHeight)
	e.targeter = NewNearestHostileTargeter(bounds, cfg.Sim.GridCellSize, tuning.MaxFollowDistance, cfg.Sim.MaxCharacters)
	return e, nil
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	interval := e.sim.TickInterval()
	dt := interval.Seconds()
	stop := e.stopChan
	e.ticker = time.NewTicker(interval)
	ticker := e.ticker
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.Step(dt)
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 Combat engine started at %d TPS", e.sim.TickRate)
}

// Stop stops the game loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Combat engine stopped")
}

// Step advances the simulation by dt seconds. Start calls it from the ticker;
// tests call it directly.
func (e *Engine) Step(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.step(dt)
}

func (e *Engine) step(dt float64) {
	started := time.Now()

	// (1) clock
	e.tickCount++
	e.now += time.Duration(dt * float64(time.Second))

	// (2) queued inputs
	n := e.commands.DrainTo(e.commandBuf)
	for i := 0; i < n; i++ {
		e.apply(e.commandBuf[i])
		e.commandBuf[i] = Command{}
	}

	// (3) armed deadlines
	fired := e.sched.Advance(e.now)

	if e.sim.RetargetEvery > 0 && (e.tickCount-1)%uint64(e.sim.RetargetEvery) == 0 {
		e.targeter.Retarget(e.order)
	}

	// (4) locomotion in ID order
	for _, c := range e.order {
		var pursuit Pursuit
		if e.pursuitFor(c, &pursuit) {
			c.loco.Tick(e.now, dt, &pursuit)
		} else {
			c.loco.Tick(e.now, dt, nil)
		}
		if c.controller == ControllerAI {
			e.decide(c)
		}
	}

	// (5) geometry sync, (6) corpse removal
	alive := 0
	var expired []*Character
	for _, c := range e.order {
		e.syncBodies(c)
		if !c.IsDead() {
			alive++
		} else if e.now >= c.removeAt {
			expired = append(expired, c)
		}
	}
	for _, c := range expired {
		e.remove(c, "death grace elapsed")
	}

	e.eventLog.EmitSimple(EventTypeTick, e.tickCount, e.now, "", TickPayload{
		Characters:  len(e.order),
		Deadlines:   e.sched.Len(),
		DeltaTimeNs: int64(dt * 1e9),
	})

	// (7) publish
	e.produceSnapshot()

	if e.onTick != nil {
		e.onTick(TickStats{
			Tick:       e.tickCount,
			Duration:   time.Since(started),
			Characters: len(e.order),
			Alive:      alive,
			Deadlines:  e.sched.Len(),
			Commands:   n,
			Fired:      fired,
		})
	}
}

// pursuitFor fills p with c's target, clearing targets that went invalid.
func (e *Engine) pursuitFor(c *Character, p *Pursuit) bool {
	if c.target == "" {
		return false
	}
	t, ok := e.characters[c.target]
	if !ok || t == c || t.IsDead() {
		c.target = ""
		return false
	}
	p.Position = t.Position()
	p.Follow = c.controller == ControllerAI
	return true
}

// decide swings for AI characters whose upcoming attack would connect.
func (e *Engine) decide(c *Character) {
	if c.IsDead() || c.target == "" || c.strikePending || c.combo == nil {
		return
	}
	t, ok := e.characters[c.target]
	if !ok || t.IsDead() {
		return
	}
	if wantsToStrike(c.Position(), c.Forward(), t.Position(), c.combo.Upcoming(e.now)) {
		e.attack(c)
	}
}

func (e *Engine) apply(cmd Command) {
	c, ok := e.characters[cmd.Character]
	if !ok {
		return
	}
	switch cmd.Kind {
	case CommandAttack:
		e.attack(c)
	case CommandMove:
		e.move(c, cmd.Vector)
	case CommandDash:
		e.dash(c, cmd.Vector)
	case CommandTeleport:
		e.teleport(c, cmd.Vector)
	case CommandTarget:
		e.setTarget(c, cmd.Target)
	case CommandInterrupt:
		e.interrupt(c)
	}
}

// Submit queues a command for the next tick. Safe from any goroutine.
// Returns false when the queue is full.
func (e *Engine) Submit(cmd Command) bool {
	if e.commands.TryPush(cmd) {
		return true
	}
	if atomic.AddUint64(&e.droppedCommands, 1)%100 == 1 {
		log.Printf("⚠️ Command queue full, dropping %s for %s", cmd.Kind, cmd.Character)
	}
	return false
}

// DroppedCommands returns how many submitted commands were discarded.
func (e *Engine) DroppedCommands() uint64 {
	return atomic.LoadUint64(&e.droppedCommands)
}

// =============================================================================
// ATTACK PIPELINE
// =============================================================================

// attack starts the next strike of c's chain. From Idle/Moving it opens a
// chain; from Attacking it continues one inside the window once the previous
// strike has resolved.
func (e *Engine) attack(c *Character) bool {
	if c.combo == nil || c.IsDead() {
		return false
	}
	switch c.State() {
	case StateIdle, StateMoving:
		if !c.combo.Ready(e.now) || !c.loco.BeginAttack() {
			return false
		}
	case StateAttacking:
		if c.strikePending || !c.combo.CanContinue(e.now) || !c.combo.Ready(e.now) {
			return false
		}
	default:
		return false
	}

	strike := c.combo.NextAttack(e.now)
	c.actionEpoch++
	epoch := c.actionEpoch
	c.strikePending = true
	c.animationDone = false
	e.totalAttacks++

	e.hooks.OnAttackStart(c.id, strike.Index)
	e.eventLog.EmitSimple(EventTypeAttackStart, e.tickCount, e.now, c.id, AttackStartPayload{
		Chain:      c.chainName,
		Attack:     strike.Attack.Name,
		ComboIndex: strike.Index,
		Terminal:   strike.Terminal,
	})
	if e.tuning.VerboseLog {
		log.Printf("⚔️ %s: %s (%s #%d)", c.name, strike.Attack.Name, c.chainName, strike.Index)
	}

	strikeID := e.sched.Arm(e.now+strike.Attack.DamageDelay, func(now time.Duration) {
		if !e.current(c, epoch) || c.State() != StateAttacking {
			return
		}
		c.strikePending = false
		e.resolveStrike(c, strike.Attack, now)
	})
	animationID := e.sched.Arm(e.now+strike.Attack.AnimationDuration, func(now time.Duration) {
		if !e.current(c, epoch) {
			return
		}
		c.animationDone = true
		if c.State() != StateAttacking {
			return
		}
		if strike.Terminal || !c.combo.CanContinue(now) {
			e.endAttack(c)
		}
	})
	c.actionDeadlines = append(c.actionDeadlines[:0], strikeID, animationID)
	e.sched.Arm(c.combo.ResetDue(), func(now time.Duration) {
		if e.characters[c.id] != c || !c.combo.Expire(now) {
			return
		}
		if c.State() == StateAttacking && c.animationDone && !c.strikePending {
			e.endAttack(c)
		}
	})
	return true
}

// current reports whether a deadline armed at epoch still applies to c.
func (e *Engine) current(c *Character, epoch uint64) bool {
	return e.characters[c.id] == c && c.actionEpoch == epoch
}

func (e *Engine) endAttack(c *Character) {
	c.combo.End()
	c.loco.EndAttack()
}

// resolveStrike runs hit detection and applies every impact before returning.
func (e *Engine) resolveStrike(c *Character, attack AttackDefinition, now time.Duration) {
	origin := c.Position()
	forward := c.Forward()

	hits := e.detector.Detect(c, origin, forward, attack)
	SortByDistance(hits)
	hits = CapHits(hits, attack.MaxTargets)

	for _, h := range hits {
		target := h.Target
		target.lastHitBy = c.id
		impact := e.impact.ApplyHit(now, origin, target, attack, forward)
		if !impact.Applied {
			continue
		}
		e.totalHits++
		e.hooks.OnHitLanded(c.id, target.id, impact.Damage)
		e.eventLog.EmitSimple(EventTypeHit, e.tickCount, now, c.id, HitEvent{
			AttackerID: c.id,
			TargetID:   target.id,
			Attack:     attack.Name,
			Damage:     impact.Damage,
			Reaction:   impact.Reaction,
			Killed:     impact.Killed,
		})
		if e.tuning.VerboseLog {
			log.Printf("⚔️ %s hit %s with %s for %d (%s, hp %d/%d)",
				c.name, target.name, attack.Name, impact.Damage, impact.Reaction,
				target.health.Current(), target.health.Max())
		}
	}
}

// onStateChanged is every character's transition callback.
func (e *Engine) onStateChanged(c *Character, from, to CombatState) {
	e.hooks.OnStateChanged(c.id, from, to)
	e.eventLog.EmitSimple(EventTypeStateChange, e.tickCount, e.now, c.id, StateChangePayload{
		From: from,
		To:   to,
		Mode: c.loco.Mode(),
	})
	if to == StateDead {
		e.handleDeath(c)
	}
}

func (e *Engine) handleDeath(c *Character) {
	c.diedAt = e.now
	c.removeAt = e.now + e.sim.DeathGrace
	e.totalDeaths++

	// out of combat queries right away, not at the end of the tick
	e.syncBodies(c)

	e.hooks.OnDeath(c.id)
	e.eventLog.EmitSimple(EventTypeDeath, e.tickCount, e.now, c.id, DeathPayload{
		KillerID: c.lastHitBy,
		Position: c.Position(),
		RemoveAt: c.removeAt,
	})
	if killer, ok := e.characters[c.lastHitBy]; ok {
		log.Printf("💀 %s was knocked out by %s", c.name, killer.name)
	} else {
		log.Printf("💀 %s was knocked out", c.name)
	}
}

// =============================================================================
// CHARACTERS
// =============================================================================

// Spawn adds a character at the navigable point nearest opts.Position and
// returns its first snapshot.
func (e *Engine) Spawn(opts SpawnOptions) (CharacterSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// HARD CAP: Prevent DoS via spawn flooding
	if len(e.characters) >= e.sim.MaxCharacters {
		log.Printf("⚠️ Character limit reached (%d), rejecting: %s", e.sim.MaxCharacters, opts.Name)
		return CharacterSnapshot{}, ErrCharacterLimit
	}
	if opts.ID == "" {
		opts.ID = NewCharacterID()
	}
	if _, exists := e.characters[opts.ID]; exists {
		return CharacterSnapshot{}, fmt.Errorf("%w: %s", ErrDuplicateCharacter, opts.ID)
	}
	if opts.Chain == "" {
		opts.Chain = DefaultChain
	}
	if opts.Name == "" {
		opts.Name = string(opts.ID)
	}
	if opts.MaxHealth <= 0 {
		opts.MaxHealth = DefaultMaxHealth
	}

	chain, err := e.moveset.Chain(opts.Chain)
	if err != nil {
		return CharacterSnapshot{}, err
	}
	combo, err := NewComboResolver(chain)
	if err != nil {
		return CharacterSnapshot{}, err
	}
	if p, ok := e.world.NearestNavigablePoint(opts.Position, e.tuning.NavSnapRadius); ok {
		opts.Position = p
	}

	c := newCharacter(opts, combo, e.tuning, e.world, e.sched, e.now)
	c.loco.onTransition = func(from, to CombatState) { e.onStateChanged(c, from, to) }
	for range c.hurtboxes {
		e.nextBody++
		c.bodies = append(c.bodies, e.nextBody)
		e.owners[e.nextBody] = c
	}

	e.characters[c.id] = c
	i := sort.Search(len(e.order), func(i int) bool { return e.order[i].id >= c.id })
	e.order = append(e.order, nil)
	copy(e.order[i+1:], e.order[i:])
	e.order[i] = c
	e.syncBodies(c)

	e.eventLog.EmitSimple(EventTypeSpawn, e.tickCount, e.now, c.id, SpawnPayload{
		Name:       c.name,
		Team:       c.team,
		Controller: c.controller,
		Chain:      c.chainName,
		Position:   c.Position(),
		MaxHealth:  c.health.Max(),
	})
	log.Printf("👤 %s joined the arena (%s, %s)", c.name, c.controller, c.chainName)
	return e.snapshotOf(c), nil
}

// Remove drops a character immediately, dead or alive.
func (e *Engine) Remove(id CharacterID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.characters[id]
	if !ok {
		return false
	}
	e.remove(c, "removed")
	return true
}

func (e *Engine) remove(c *Character, reason string) {
	for _, id := range c.bodies {
		e.world.RemoveBody(id)
		delete(e.owners, id)
	}
	delete(e.characters, c.id)
	for i, o := range e.order {
		if o == c {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	c.interruptAttack()
	e.eventLog.EmitSimple(EventTypeRemoved, e.tickCount, e.now, c.id, nil)
	if e.tuning.VerboseLog {
		log.Printf("🧹 %s left the arena: %s", c.name, reason)
	}
}

// syncBodies pushes c's hurtboxes into the world.
func (e *Engine) syncBodies(c *Character) {
	layer := LayerCombatant
	if c.IsDead() {
		layer = LayerCorpse
	}
	for i, id := range c.bodies {
		e.world.UpsertBody(Body{ID: id, Position: c.hurtboxCenter(i)}, c.hurtboxes[i].Radius, layer)
	}
}

// State returns a consistent copy of one character.
func (e *Engine) State(id CharacterID) (CharacterSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	c, ok := e.characters[id]
	if !ok {
		return CharacterSnapshot{}, false
	}
	return e.snapshotOf(c), true
}

// RequestAttack starts or continues c's chain now.
func (e *Engine) RequestAttack(id CharacterID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.characters[id]
	return ok && e.attack(c)
}

// Move sets a movement intent; the zero vector stops.
func (e *Engine) Move(id CharacterID, dir Vec3) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.characters[id]
	return ok && e.move(c, dir)
}

func (e *Engine) move(c *Character, dir Vec3) bool {
	if c.IsDead() {
		return false
	}
	c.loco.SetIntent(dir)
	return true
}

// Dash bursts c along dir with brief invulnerability.
func (e *Engine) Dash(id CharacterID, dir Vec3) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.characters[id]
	return ok && e.dash(c, dir)
}

func (e *Engine) dash(c *Character, dir Vec3) bool {
	from := c.Position()
	if !c.loco.Dash(dir, e.now) {
		return false
	}
	c.SetInvulnerableUntil(e.now + e.tuning.DashInvulnerability)
	e.eventLog.EmitSimple(EventTypeDash, e.tickCount, e.now, c.id, MovePayload{
		From: from,
		To:   from.Add(c.Velocity().Scale(e.tuning.DashDuration.Seconds())),
	})
	return true
}

// Teleport moves c to the navigable point nearest pos. An attack in
// progress is abandoned.
func (e *Engine) Teleport(id CharacterID, pos Vec3) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.characters[id]
	return ok && e.teleport(c, pos)
}

func (e *Engine) teleport(c *Character, pos Vec3) bool {
	from := c.Position()
	wasAttacking := c.State() == StateAttacking
	if !c.loco.Teleport(pos) {
		return false
	}
	if wasAttacking {
		c.interruptAttack()
		c.loco.EndAttack()
	}
	e.syncBodies(c)
	e.eventLog.EmitSimple(EventTypeTeleport, e.tickCount, e.now, c.id, MovePayload{From: from, To: c.Position()})
	return true
}

// SetTarget designates c's opponent. An empty target clears it. Teammates,
// the dead and c itself are rejected.
func (e *Engine) SetTarget(id, target CharacterID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.characters[id]
	return ok && e.setTarget(c, target)
}

func (e *Engine) setTarget(c *Character, target CharacterID) bool {
	if c.IsDead() {
		return false
	}
	if target == "" {
		c.target = ""
		return true
	}
	t, ok := e.characters[target]
	if !ok || t == c || t.IsDead() || sameTeam(c, t) {
		return false
	}
	c.target = target
	return true
}

// Interrupt cancels c's attack in progress, including any pending strike.
func (e *Engine) Interrupt(id CharacterID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.characters[id]
	return ok && e.interrupt(c)
}

func (e *Engine) interrupt(c *Character) bool {
	if c.State() != StateAttacking {
		return false
	}
	c.interruptAttack()
	return c.loco.EndAttack()
}

// Heal restores health on a living character. Returns the amount restored.
func (e *Engine) Heal(id CharacterID, amount int) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.characters[id]
	if !ok || c.IsDead() {
		return 0, false
	}
	healed := e.impact.Heal(c, amount)
	if healed > 0 {
		e.eventLog.EmitSimple(EventTypeHeal, e.tickCount, e.now, c.id, HealPayload{
			Amount:    healed,
			CurrentHP: c.health.Current(),
		})
	}
	return healed, true
}

// ReplaceMoveset swaps in a reloaded moveset. Characters whose chain is
// missing from it keep their current chain; their errors are joined.
func (e *Engine) ReplaceMoveset(m *Moveset) error {
	if m == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, c := range e.order {
		chain, err := m.Chain(c.chainName)
		if err == nil {
			err = c.combo.Replace(chain)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	e.moveset = m
	log.Printf("🔁 Moveset reloaded: %v", m.Names())
	return errors.Join(errs...)
}

// Moveset returns the moveset new spawns draw from.
func (e *Engine) Moveset() *Moveset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.moveset
}

// =============================================================================
// SNAPSHOTS & STATS
// =============================================================================

func (e *Engine) snapshotOf(c *Character) CharacterSnapshot {
	return CharacterSnapshot{
		ID:           c.id,
		Name:         c.name,
		Team:         c.team,
		Controller:   c.controller,
		Position:     c.Position(),
		Yaw:          c.Yaw(),
		Velocity:     c.Velocity(),
		State:        c.State(),
		Mode:         c.Mode(),
		HP:           c.health.Current(),
		MaxHP:        c.health.Max(),
		Chain:        c.chainName,
		ComboIndex:   c.combo.Index(),
		Invulnerable: c.Invulnerable(e.now),
		Target:       c.target,
	}
}

// produceSnapshot publishes the tick's state. Living characters are copied
// first so the cap never hides them behind corpses.
func (e *Engine) produceSnapshot() {
	snap := e.snapshotPool.AcquireWrite()
	snap.TickNumber = e.tickCount
	snap.SimTime = e.now
	snap.TotalAttacks = e.totalAttacks
	snap.TotalHits = e.totalHits
	snap.TotalDeaths = e.totalDeaths

	limit := e.snapshotPool.GetLimits().MaxCharacters
	alive := 0
	for pass := 0; pass < 2; pass++ {
		for _, c := range e.order {
			dead := c.IsDead()
			if (pass == 0) == dead {
				continue
			}
			if !dead {
				alive++
			}
			if len(snap.Characters) < limit {
				snap.Characters = append(snap.Characters, e.snapshotOf(c))
			}
		}
	}
	snap.CharacterCount = len(e.order)
	snap.AliveCount = alive

	e.snapshotPool.PublishWrite()
}

// GetSnapshot returns the latest published snapshot without locking.
func (e *Engine) GetSnapshot() *GameSnapshot {
	return e.snapshotPool.AcquireRead()
}

// EngineStats is a point-in-time summary for monitoring.
type EngineStats struct {
	Tick            uint64                 `json:"tick"`
	SimTime         time.Duration          `json:"simTime"`
	Characters      int                    `json:"characters"`
	Deadlines       int                    `json:"deadlines"`
	QueuedCommands  int                    `json:"queuedCommands"`
	DroppedCommands uint64                 `json:"droppedCommands"`
	TotalAttacks    uint64                 `json:"totalAttacks"`
	TotalHits       uint64                 `json:"totalHits"`
	TotalDeaths     uint64                 `json:"totalDeaths"`
	Grid            spatial.GridStats      `json:"grid"`
	EventLog        map[string]interface{} `json:"eventLog"`
}

// Stats returns engine counters.
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return EngineStats{
		Tick:            e.tickCount,
		SimTime:         e.now,
		Characters:      len(e.order),
		Deadlines:       e.sched.Len(),
		QueuedCommands:  e.commands.Len(),
		DroppedCommands: e.DroppedCommands(),
		TotalAttacks:    e.totalAttacks,
		TotalHits:       e.totalHits,
		TotalDeaths:     e.totalDeaths,
		Grid:            e.targeter.Stats(),
		EventLog:        e.eventLog.GetStats(),
	}
}

// Now returns the simulation clock.
func (e *Engine) Now() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.now
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}
