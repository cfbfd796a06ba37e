package combat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/starfall/internal/game/combatant"
	"github.com/cory-johannsen/starfall/internal/game/content"
	"github.com/cory-johannsen/starfall/internal/game/party"
	"github.com/cory-johannsen/starfall/internal/game/reward"
	"github.com/cory-johannsen/starfall/internal/telemetry"
)

// Deps are the collaborators a Session needs.
type Deps struct {
	Catalog    *content.Catalog
	Store      party.Store
	Calculator *reward.Calculator
	Rules      Rules
	// Policy chooses actions for enemies and guests. Nil uses LowestHPPolicy.
	Policy Policy
	// Sink receives terminal transition events. Nil discards them.
	Sink   telemetry.Sink
	Logger *zap.Logger
	// Now stamps telemetry events. Nil uses time.Now.
	Now func() time.Time
}

// Session owns the combat state of one player session. It exposes the
// selection, resolution and results operations to the presentation layer
// and serializes them: each call runs to completion before the next starts.
// Every returned *State is a copy the caller may keep.
type Session struct {
	mu        sync.Mutex
	id        string
	deps      Deps
	resolver  *Resolver
	snapshots SnapshotStore
	state     *State
}

// NewSession creates a Session with no active combat.
//
// Precondition: deps.Catalog, deps.Store and deps.Calculator must be non-nil.
func NewSession(deps Deps) *Session {
	return newSession("", deps, nil)
}

func newSession(id string, deps Deps, snapshots SnapshotStore) *Session {
	if deps.Policy == nil {
		deps.Policy = LowestHPPolicy{}
	}
	if deps.Sink == nil {
		deps.Sink = telemetry.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Session{
		id:        id,
		deps:      deps,
		resolver:  NewResolver(deps.Rules, deps.Catalog),
		snapshots: snapshots,
	}
}

// StartCombat begins the encounter configured for area using the party
// currently held by the store.
//
// Postcondition: Returns the initial state with Round 1, Outcome Ongoing and
// a living active combatant, or ErrCombatExists if a combat is ongoing,
// ErrResultsPending if a won combat is still VictoryPending, ErrNoEncounter
// for an unknown area, or ErrPartyDefeated when no character can fight.
func (s *Session) StartCombat(ctx context.Context, area string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil && !s.state.Outcome.Terminal() {
		return nil, fmt.Errorf("starting combat in %q: %w", area, ErrCombatExists)
	}
	if s.state != nil && s.state.Outcome == VictoryPending {
		return nil, fmt.Errorf("starting combat in %q: %w", area, ErrResultsPending)
	}
	enc, ok := s.deps.Catalog.EncounterForArea(area)
	if !ok {
		return nil, fmt.Errorf("area %q: %w", area, ErrNoEncounter)
	}
	p, err := s.deps.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading party: %w", err)
	}
	alive := false
	for _, c := range p.Characters {
		if c.HP > 0 {
			alive = true
			break
		}
	}
	if !alive {
		return nil, ErrPartyDefeated
	}
	enemies, err := combatant.SpawnEnemies(enc, s.deps.Catalog.Enemies)
	if err != nil {
		return nil, err
	}
	reg, err := combatant.NewRegistry(TurnOrder(combatant.Project(p.Characters, enc.Guests, enemies)))
	if err != nil {
		return nil, err
	}

	st := &State{
		ID:         uuid.NewString(),
		Area:       area,
		Encounter:  enc.ID,
		Combatants: reg,
		Active:     firstLiving(reg),
		Round:      1,
		Outcome:    Ongoing,
		Inventory:  cloneCounts(p.Inventory),
		Consumed:   make(map[string]int),
		Party:      p.Clone(),
	}
	s.state = st
	s.deps.Logger.Info("combat started",
		zap.String("combat_id", st.ID),
		zap.String("area", area),
		zap.String("encounter", enc.ID),
		zap.Int("combatants", reg.Len()),
		zap.Stringer("first", st.ActiveCombatant().Ref),
	)
	s.save(ctx)
	return st.Clone(), nil
}

// State returns a copy of the current state.
func (s *Session) State() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, ErrNoCombat
	}
	return s.state.Clone(), nil
}

// Outcome returns the current outcome.
func (s *Session) Outcome() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return Ongoing, ErrNoCombat
	}
	return s.state.Outcome, nil
}

// RequiresInput reports whether the combat is ongoing and waiting on the
// player to choose an action for a player-controlled combatant.
func (s *Session) RequiresInput() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil && s.state.Outcome == Ongoing && s.state.ActiveCombatant().Kind.PlayerControlled()
}

// SelectAction sets the action for the active combatant. See Resolver.SelectAction.
func (s *Session) SelectAction(ctx context.Context, actor combatant.Ref, action ActionKind) (*State, error) {
	return s.update(ctx, "select action", func(st *State) (*State, error) {
		return s.resolver.SelectAction(st, actor, action)
	})
}

// SelectItem chooses the item for an Item action.
func (s *Session) SelectItem(ctx context.Context, itemID string) (*State, error) {
	return s.update(ctx, "select item", func(st *State) (*State, error) {
		return s.resolver.SelectItem(st, itemID)
	})
}

// SelectSpell chooses the spell for a Spell action.
func (s *Session) SelectSpell(ctx context.Context, spellID string) (*State, error) {
	return s.update(ctx, "select spell", func(st *State) (*State, error) {
		return s.resolver.SelectSpell(st, spellID)
	})
}

// SelectTarget chooses the target for the pending action.
func (s *Session) SelectTarget(ctx context.Context, target combatant.Ref) (*State, error) {
	return s.update(ctx, "select target", func(st *State) (*State, error) {
		return s.resolver.SelectTarget(st, target)
	})
}

// ClearSelection cancels the in-progress selection.
func (s *Session) ClearSelection(ctx context.Context) (*State, error) {
	return s.update(ctx, "clear selection", func(st *State) (*State, error) {
		return ClearSelection(st), nil
	})
}

// ResolveTurn applies the fully specified selection. See Resolver.Resolve.
func (s *Session) ResolveTurn(ctx context.Context) (*State, error) {
	return s.update(ctx, "resolve turn", s.resolver.Resolve)
}

// Act runs a complete decision for the active combatant, whoever controls it.
func (s *Session) Act(ctx context.Context, d Decision) (*State, error) {
	return s.update(ctx, "act", func(st *State) (*State, error) {
		return s.resolver.Apply(st, d)
	})
}

// TakeAutoTurn lets the policy act for an enemy or guest.
//
// Postcondition: Returns ErrInvalidSelectionState when the active combatant
// is player-controlled or combat is over.
func (s *Session) TakeAutoTurn(ctx context.Context) (*State, error) {
	return s.update(ctx, "auto turn", func(st *State) (*State, error) {
		if st.Outcome.Terminal() {
			return st, fmt.Errorf("auto turn: combat is %s: %w", st.Outcome, ErrInvalidSelectionState)
		}
		if st.ActiveCombatant().Kind.PlayerControlled() {
			return st, fmt.Errorf("auto turn: %s awaits player input: %w", st.ActiveCombatant().Ref, ErrInvalidSelectionState)
		}
		return s.resolver.Apply(st, s.deps.Policy.Decide(st))
	})
}

// Flee ends an ongoing combat with outcome Fled. No rewards are granted.
func (s *Session) Flee(ctx context.Context) (*State, error) {
	return s.update(ctx, "flee", func(st *State) (*State, error) {
		if st.Outcome.Terminal() {
			return st, fmt.Errorf("flee: combat is %s: %w", st.Outcome, ErrInvalidSelectionState)
		}
		next := st.Clone()
		next.Selection = Selection{}
		next.Outcome = Fled
		return next, nil
	})
}

// ComputeResults records the rewards of a won combat and returns them.
// The first call in VictoryPending computes the results, commits them to
// the party store and moves to VictoryRecorded; later calls return the
// recorded results without side effects.
//
// Postcondition: Returns ErrNotVictorious unless the outcome is a victory.
// A store failure is returned and leaves the outcome VictoryPending.
func (s *Session) ComputeResults(ctx context.Context) (reward.Results, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	if st == nil {
		return reward.Results{}, ErrNoCombat
	}
	switch st.Outcome {
	case VictoryRecorded:
		return st.Results.Clone(), nil
	case VictoryPending:
	default:
		return reward.Results{}, fmt.Errorf("computing results: combat is %s: %w", st.Outcome, ErrNotVictorious)
	}

	res := s.deps.Calculator.Compute(rewardInput(st))
	if err := s.deps.Store.Commit(ctx, res.Update()); err != nil {
		return reward.Results{}, fmt.Errorf("committing combat results: %w", err)
	}
	next := st.Clone()
	next.Results = &res
	next.Outcome = VictoryRecorded
	s.state = next
	s.deps.Logger.Info("results recorded",
		zap.String("combat_id", next.ID),
		zap.Int("xp", res.Reward.XP),
		zap.Int("currency", res.Reward.Currency),
		zap.Int("item_kinds", len(res.Reward.InventoryDelta)),
	)
	s.save(ctx)
	return res.Clone(), nil
}

// Reset tears down the combat state, returning control to the overworld.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		s.deps.Logger.Debug("combat reset",
			zap.String("combat_id", s.state.ID),
			zap.Stringer("outcome", s.state.Outcome),
		)
	}
	s.state = nil
	if s.snapshots != nil && s.id != "" {
		if err := s.snapshots.Delete(ctx, s.id); err != nil {
			s.deps.Logger.Warn("deleting combat snapshot", zap.String("session", s.id), zap.Error(err))
		}
	}
}

// update runs fn against the current state and installs the result. A
// transition out of Ongoing emits exactly one telemetry event.
func (s *Session) update(ctx context.Context, op string, fn func(*State) (*State, error)) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	if prev == nil {
		return nil, ErrNoCombat
	}
	next, err := fn(prev)
	if err != nil {
		s.deps.Logger.Debug("combat operation rejected",
			zap.String("combat_id", prev.ID),
			zap.String("op", op),
			zap.Error(err),
		)
		return prev.Clone(), err
	}
	s.state = next
	if next.Turns > prev.Turns {
		s.logTurn(next)
	}
	if prev.Outcome == Ongoing && next.Outcome.Terminal() {
		s.deps.Logger.Info("combat ended",
			zap.String("combat_id", next.ID),
			zap.String("area", next.Area),
			zap.Stringer("outcome", next.Outcome),
			zap.Int("rounds", next.Round),
		)
		s.emit(ctx, next)
	}
	s.save(ctx)
	return next.Clone(), nil
}

func (s *Session) logTurn(st *State) {
	r := st.Last
	fields := []zap.Field{
		zap.String("combat_id", st.ID),
		zap.Int("round", r.Round),
		zap.Stringer("actor", r.Actor),
		zap.Stringer("action", r.Action),
	}
	if r.Target != nil {
		fields = append(fields, zap.Stringer("target", *r.Target))
	}
	if r.Damage > 0 {
		fields = append(fields, zap.Int("damage", r.Damage))
	}
	if r.Healed > 0 {
		fields = append(fields, zap.Int("healed", r.Healed))
	}
	if r.Defeated {
		fields = append(fields, zap.Bool("defeated", true))
	}
	s.deps.Logger.Debug("turn resolved", fields...)
}

func (s *Session) emit(ctx context.Context, st *State) {
	var name string
	switch st.Outcome {
	case VictoryPending, VictoryRecorded:
		name = telemetry.EventVictory
	case Defeat:
		name = telemetry.EventDefeat
	case Fled:
		name = telemetry.EventFled
	default:
		return
	}
	e := telemetry.Event{
		Name: name,
		Time: s.deps.Now(),
		Payload: map[string]any{
			telemetry.KeyCombatID:        st.ID,
			telemetry.KeyArea:            st.Area,
			telemetry.KeyRounds:          st.Round,
			telemetry.KeyEnemiesDefeated: st.EnemiesDefeated(),
		},
	}
	if err := s.deps.Sink.Emit(ctx, e); err != nil {
		s.deps.Logger.Warn("telemetry emit failed", zap.String("event", name), zap.Error(err))
	}
}

func (s *Session) save(ctx context.Context) {
	if s.snapshots == nil || s.id == "" || s.state == nil {
		return
	}
	if err := s.snapshots.Save(ctx, s.id, s.state); err != nil {
		s.deps.Logger.Warn("saving combat snapshot", zap.String("session", s.id), zap.Error(err))
	}
}

// rewardInput collects the calculator input from a won combat.
func rewardInput(st *State) reward.Input {
	in := reward.Input{Consumed: cloneCounts(st.Consumed)}
	for _, ch := range st.Party.Characters {
		p := reward.Participant{Before: ch.Clone(), HP: ch.HP, MP: ch.MP}
		if c, ok := st.Combatants.Lookup(combatant.Ref{Kind: combatant.KindCharacter, ID: ch.ID}); ok {
			p.HP, p.MP = c.HP, c.MP
		}
		in.Participants = append(in.Participants, p)
	}
	for _, c := range st.Combatants.All() {
		if c.Kind == combatant.KindEnemy && !c.IsAlive() {
			in.Defeated = append(in.Defeated, c.Source)
		}
	}
	return in
}
