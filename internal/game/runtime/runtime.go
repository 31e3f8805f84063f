// Package runtime implements the runtime worker: the single-threaded
// command loop that serializes every PrepareNextTurn, ExecuteAction,
// DecideAndExecute and QueryState command against one session's GameState, wiring together the engine,
// scheduler, handler registry, event extraction, persistence, the zkVM
// bridge and the event bus. One command channel, one owning goroutine,
// no shared-state locking anywhere else.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xwonj/dungeon-sim/internal/game/action"
	"github.com/0xwonj/dungeon-sim/internal/game/bus"
	"github.com/0xwonj/dungeon-sim/internal/game/engine"
	"github.com/0xwonj/dungeon-sim/internal/game/events"
	"github.com/0xwonj/dungeon-sim/internal/game/gameerr"
	"github.com/0xwonj/dungeon-sim/internal/game/handler"
	"github.com/0xwonj/dungeon-sim/internal/game/metrics"
	"github.com/0xwonj/dungeon-sim/internal/game/persistence"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/provider"
	"github.com/0xwonj/dungeon-sim/internal/game/scheduler"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
	"github.com/0xwonj/dungeon-sim/internal/game/zkvm"
	"github.com/0xwonj/dungeon-sim/pkg/logger"
)

// Config tunes one Worker's behavior.
type Config struct {
	EnablePersistence bool
	EnableZKProving   bool
	CheckpointInterval int // checkpoint every N executed actions; 0 disables
}

// Worker owns one session's GameState and drives every state transition
// through a single command channel, so engine.Execute is never called
// concurrently from two goroutines.
type Worker struct {
	cfg Config
	log *logger.Logger

	eng       *engine.Engine
	sched     *scheduler.Scheduler
	handlers  *handler.Registry
	env       action.Env
	providers map[primitives.EntityId]provider.ActionProvider
	fallback  provider.ActionProvider

	store  *persistence.Store
	prover zkvm.Prover
	bus    *bus.Bus

	cmds chan command
	done chan struct{}

	sinceCheckpoint int
}

// command is the internal unit of work processed one at a time by Run.
type command struct {
	kind   commandKind
	action action.Action
	actor  primitives.EntityId
	reply  chan result
}

type commandKind int

const (
	cmdPrepareTurn commandKind = iota
	cmdExecuteAction
	cmdDecideAndExecute
	cmdQueryState
)

type result struct {
	events []events.GameEvent
	state  state.GameState
	actor  primitives.EntityId
	err    error
}

// New assembles a Worker around an already-bootstrapped GameState and
// oracle environment. store and prover may be nil to disable persistence
// and proving respectively, independent of cfg (callers decide both at
// construction time so tests can omit either cheaply).
func New(
	cfg Config,
	initial state.GameState,
	env action.Env,
	handlers *handler.Registry,
	store *persistence.Store,
	prover zkvm.Prover,
	eventBus *bus.Bus,
	log *logger.Logger,
) *Worker {
	if log == nil {
		log = logger.NewDefault("runtime")
	}
	st := initial
	eng := engine.New(&st)
	return &Worker{
		cfg:       cfg,
		log:       log,
		eng:       eng,
		sched:     scheduler.New(eng),
		handlers:  handlers,
		env:       env,
		providers: make(map[primitives.EntityId]provider.ActionProvider),
		fallback:  provider.DefaultProvider{},
		store:     store,
		prover:    prover,
		bus:       eventBus,
		cmds:      make(chan command),
		done:      make(chan struct{}),
	}
}

// SetProvider registers the ActionProvider NPC actorID should decide its
// turn with, overriding the fallback DefaultProvider.
func (w *Worker) SetProvider(actorID primitives.EntityId, p provider.ActionProvider) {
	w.providers[actorID] = p
}

// Run drives the command loop until ctx is canceled. It must run in its
// own goroutine; every other method sends a command and blocks for the
// reply, so Run is the only goroutine that ever touches GameState.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-w.cmds:
			cmd.reply <- w.process(cmd)
		}
	}
}

// Done is closed once Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(cmd command) result {
	switch cmd.kind {
	case cmdPrepareTurn:
		return w.prepareTurn()
	case cmdExecuteAction:
		return w.executeAction(cmd.action)
	case cmdDecideAndExecute:
		return w.decideAndExecute(cmd.actor)
	case cmdQueryState:
		return result{state: w.eng.State().CloneLightweight()}
	default:
		return result{err: fmt.Errorf("runtime: unknown command kind %d", cmd.kind)}
	}
}

func (w *Worker) prepareTurn() result {
	before := w.eng.State().CloneLightweight()
	actor, delta, err := w.sched.PrepareNextTurn(w.env)
	if err != nil {
		return result{err: err}
	}
	evs := events.Extract(before, &action.PrepareTurn{}, *w.eng.State(), delta)
	w.publishTurn(actor)
	w.publishGameState(delta, evs)
	return result{events: evs, actor: actor}
}

// executeAction runs a through the engine, then drains the reactive
// handler queue it may trigger, persisting and proving the top-level
// action if enabled.
func (w *Worker) executeAction(a action.Action) result {
	before := w.eng.State().CloneLightweight()

	if w.cfg.EnableZKProving && w.prover != nil {
		start := time.Now()
		proof, err := w.prover.Prove(w.env, before, a, w.eng.State().Turn.ActionNonce+1)
		metrics.RecordProve(string(w.prover.Backend()), time.Since(start), err)
		if err != nil {
			metrics.RecordAction(string(a.ActionKind()), "prove_error")
			return result{err: err}
		}
		verr := w.prover.Verify(w.env, proof)
		metrics.RecordVerify(string(w.prover.Backend()), 0, verr)
		w.publishProof(proof, verr)
	}

	delta, err := w.eng.Execute(w.env, a)
	if err != nil {
		metrics.RecordAction(string(a.ActionKind()), phaseOutcome(err))
		return result{err: err}
	}
	metrics.RecordAction(string(a.ActionKind()), "ok")

	top := events.Extract(before, a, *w.eng.State(), delta)

	var all []events.GameEvent
	var chainErr error
	if w.handlers != nil {
		all, chainErr = w.handlers.Run(w.eng, w.env, top)
	} else {
		all = top
	}
	metrics.RecordHandlerChainDepth(handlerDepth(all, top))
	metrics.SetClock(uint64(w.eng.State().Turn.Clock))
	metrics.SetActiveEntities(len(w.eng.State().Turn.ActiveActors))

	w.persist(a, delta)
	w.publishGameState(delta, all)

	if chainErr != nil {
		return result{events: all, err: chainErr}
	}
	return result{events: all}
}

// decideAndExecute asks actorID's ActionProvider for its next Action and
// runs it, the host-only decision step ahead of the deterministic
// executeAction call.
func (w *Worker) decideAndExecute(actorID primitives.EntityId) result {
	p, ok := w.providers[actorID]
	if !ok {
		p = w.fallback
	}
	a, err := p.Decide(w.eng.State(), actorID, w.env)
	if err != nil {
		return result{err: gameerr.Wrap(gameerr.CodeProviderFailed, "action provider failed", err)}
	}
	return w.executeAction(a)
}

func (w *Worker) persist(a action.Action, delta state.StateDelta) {
	if !w.cfg.EnablePersistence || w.store == nil {
		return
	}
	envelope, err := action.Encode(a)
	if err != nil {
		w.log.WithError(err).Error("encode action for persistence")
		return
	}
	rec := persistence.Record{
		Nonce:      w.eng.State().Turn.ActionNonce,
		ClockAfter: uint64(w.eng.State().Turn.Clock),
		Envelope:   envelope,
	}
	if err := w.store.AppendAction(rec); err != nil {
		w.log.WithError(err).Error("append action record")
		return
	}

	if w.cfg.CheckpointInterval <= 0 {
		return
	}
	w.sinceCheckpoint++
	if w.sinceCheckpoint >= w.cfg.CheckpointInterval {
		w.sinceCheckpoint = 0
		if err := w.store.Checkpoint(rec.Nonce, *w.eng.State()); err != nil {
			w.log.WithError(err).Error("write checkpoint")
		}
	}
}

func (w *Worker) publishGameState(delta state.StateDelta, evs []events.GameEvent) {
	if w.bus == nil {
		return
	}
	w.bus.PublishGameState(bus.GameStateMessage{
		Nonce:  w.eng.State().Turn.ActionNonce,
		Events: evs,
		Delta:  delta,
	})
}

func (w *Worker) publishTurn(actor primitives.EntityId) {
	if w.bus == nil {
		return
	}
	w.bus.PublishTurn(bus.TurnMessage{Actor: actor, Clock: w.eng.State().Turn.Clock})
}

func (w *Worker) publishProof(proof zkvm.Proof, verr error) {
	if w.bus == nil {
		return
	}
	msg := bus.ProofMessage{Proof: proof, Verified: verr == nil}
	if verr != nil {
		msg.Err = verr.Error()
	}
	w.bus.PublishProof(msg)

	if w.store != nil {
		_ = w.store.AppendProof(persistence.ProofRecord{
			Nonce:     proof.Nonce,
			ProofPath: fmt.Sprintf("proofs/%020d.json", proof.Nonce),
			Verified:  verr == nil,
		})
	}
}

func phaseOutcome(err error) string {
	var execErr *engine.Error
	if errors.As(err, &execErr) {
		return string(execErr.Phase)
	}
	return "error"
}

// handlerDepth approximates the chain depth reached, for the metrics
// histogram: events produced beyond the seed came from at least one more
// work-queue iteration. A precise depth would require threading the
// iteration counter out of handler.Registry.Run; this is a cheap proxy.
func handlerDepth(all, seed []events.GameEvent) int {
	if len(all) <= len(seed) {
		return 0
	}
	return 1
}

// PrepareNextTurn asks the worker to select and advance to the next
// ready actor.
func (w *Worker) PrepareNextTurn(ctx context.Context) (primitives.EntityId, []events.GameEvent, error) {
	res, err := w.send(ctx, command{kind: cmdPrepareTurn})
	if err != nil {
		return 0, nil, err
	}
	return res.actor, res.events, res.err
}

// ExecuteAction submits an already-decided action for execution.
func (w *Worker) ExecuteAction(ctx context.Context, a action.Action) ([]events.GameEvent, error) {
	res, err := w.send(ctx, command{kind: cmdExecuteAction, action: a})
	if err != nil {
		return nil, err
	}
	return res.events, res.err
}

// DecideAndExecute lets actorID's ActionProvider pick its action and runs
// it in one command.
func (w *Worker) DecideAndExecute(ctx context.Context, actorID primitives.EntityId) ([]events.GameEvent, error) {
	res, err := w.send(ctx, command{kind: cmdDecideAndExecute, actor: actorID})
	if err != nil {
		return nil, err
	}
	return res.events, res.err
}

// QueryState returns a lightweight copy of the live GameState.
func (w *Worker) QueryState(ctx context.Context) (state.GameState, error) {
	res, err := w.send(ctx, command{kind: cmdQueryState})
	if err != nil {
		return state.GameState{}, err
	}
	return res.state, res.err
}

func (w *Worker) send(ctx context.Context, cmd command) (result, error) {
	cmd.reply = make(chan result, 1)
	select {
	case <-ctx.Done():
		return result{}, ctx.Err()
	case w.cmds <- cmd:
	}
	select {
	case <-ctx.Done():
		return result{}, ctx.Err()
	case res := <-cmd.reply:
		return res, nil
	}
}
