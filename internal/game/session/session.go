// Package session bootstraps one simulation session's initial GameState
// and oracle.Manager from a loaded content pack: it loads content into
// oracles, then spawns each InitialEntitySpec into GameState.Entities.
package session

import (
	"fmt"

	"github.com/0xwonj/dungeon-sim/internal/game/content"
	"github.com/0xwonj/dungeon-sim/internal/game/oracle"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
)

// Bootstrap is the result of loading a content directory: the oracle
// surface every action and handler reads, and the GameState it seeds.
type Bootstrap struct {
	Oracles oracle.Manager
	State   state.GameState
}

// defaultPlayerHP etc. fill the player's meters. An NPC template whose
// max_hp or max_stamina is zero falls back to the HP or stamina default;
// its max_mana is used as given, even when zero.
const (
	defaultPlayerHP      = 100
	defaultPlayerStamina = 100
	defaultPlayerMana    = 50
)

// Load reads dir via the content loader and spawns every InitialEntitySpec
// it reports into a fresh GameState.
func Load(dir string) (*Bootstrap, error) {
	pack, err := content.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load content pack: %w", err)
	}

	oracles := pack.Oracles()

	st := state.New()
	for _, spec := range pack.Initial {
		st.Entities.Actors[spec.ID] = newActor(spec, pack)
	}
	for _, a := range st.Entities.Actors {
		if a.ID == primitives.Player {
			ready := st.Turn.Clock
			a.ReadyAt = &ready
			st.Entities.Actors[a.ID] = a
			st.Turn.Activate(a.ID)
		}
	}
	// NPCs activate once the player comes within activation radius
	// (handled by handler.ActivationHandler); only the player starts
	// active so the very first PrepareNextTurn has a deterministic
	// candidate regardless of map layout.

	return &Bootstrap{Oracles: oracles, State: st}, nil
}

func newActor(spec oracle.InitialEntitySpec, pack *content.Pack) state.Actor {
	if spec.Template == "" {
		return state.Actor{
			ID:       spec.ID,
			Position: spec.Position,
			Core:     state.CoreStats{Strength: 10, Dexterity: 10, Intellect: 10, Vitality: 10},
			Resources: state.ActorResources{
				HP:      primitives.NewResourceMeter(defaultPlayerHP),
				Stamina: primitives.NewResourceMeter(defaultPlayerStamina),
				Mana:    primitives.NewResourceMeter(defaultPlayerMana),
			},
		}
	}

	tmpl, ok := pack.Npcs[spec.Template]
	if !ok {
		return state.Actor{ID: spec.ID, Position: spec.Position}
	}
	return state.Actor{
		ID:       spec.ID,
		Position: spec.Position,
		Core: state.CoreStats{
			Strength:  tmpl.CoreStatsStr,
			Dexterity: tmpl.CoreStatsDex,
			Intellect: tmpl.CoreStatsInt,
			Vitality:  tmpl.CoreStatsVit,
		},
		Resources: state.ActorResources{
			HP:      primitives.NewResourceMeter(nonZero(tmpl.MaxHP, defaultPlayerHP)),
			Stamina: primitives.NewResourceMeter(nonZero(tmpl.MaxStamina, defaultPlayerStamina)),
			Mana:    primitives.NewResourceMeter(tmpl.MaxMana),
		},
	}
}

func nonZero(v uint32, fallback uint32) uint32 {
	if v == 0 {
		return fallback
	}
	return v
}
