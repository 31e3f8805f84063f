package oracle

import "github.com/0xwonj/dungeon-sim/internal/game/primitives"

// StaticOracles is the in-memory, host-side implementation of every
// oracle interface, built once from a loaded content pack and shared
// read-only, by reference, for the lifetime of a session.
type StaticOracles struct {
	width, height int32
	tiles         map[primitives.Position]MapTile
	initial       []InitialEntitySpec
	items         map[primitives.ItemHandle]ItemDef
	npcs          map[string]NpcTemplate
	tables        Tables
	config        Config
}

// NewStaticOracles builds a StaticOracles value from already-parsed
// content. Content loading itself lives in package content, so this
// package stays free of the JSON/expression-evaluation dependencies.
func NewStaticOracles(
	width, height int32,
	tiles map[primitives.Position]MapTile,
	initial []InitialEntitySpec,
	items map[primitives.ItemHandle]ItemDef,
	npcs map[string]NpcTemplate,
	tables Tables,
	config Config,
) *StaticOracles {
	return &StaticOracles{
		width: width, height: height,
		tiles: tiles, initial: initial,
		items: items, npcs: npcs,
		tables: tables, config: config,
	}
}

func (s *StaticOracles) Dimensions() (int32, int32) { return s.width, s.height }

func (s *StaticOracles) TileAt(pos primitives.Position) (MapTile, bool) {
	t, ok := s.tiles[pos]
	return t, ok
}

func (s *StaticOracles) InitialEntities() []InitialEntitySpec { return s.initial }

func (s *StaticOracles) NonDefaultTiles() map[primitives.Position]MapTile { return s.tiles }

func (s *StaticOracles) ItemDef(h primitives.ItemHandle) (ItemDef, bool) {
	d, ok := s.items[h]
	return d, ok
}

func (s *StaticOracles) AllItems() []ItemDef {
	out := make([]ItemDef, 0, len(s.items))
	for _, d := range s.items {
		out = append(out, d)
	}
	return out
}

func (s *StaticOracles) Template(id string) (NpcTemplate, bool) {
	t, ok := s.npcs[id]
	return t, ok
}

func (s *StaticOracles) AllTemplates() []NpcTemplate {
	out := make([]NpcTemplate, 0, len(s.npcs))
	for _, t := range s.npcs {
		out = append(out, t)
	}
	return out
}

func (s *StaticOracles) Tables() Tables { return s.tables }

// attackProfileKeys maps the action package's Kind discriminators for
// the three basic attacks onto this package's Tables.Attacks keys, since
// oracle cannot import action (action already imports oracle for Env).
var attackProfileKeys = map[string]string{
	"AttackMelee":  "melee",
	"AttackRanged": "ranged",
	"AttackMagic":  "magic",
}

func (s *StaticOracles) SpeedClassFor(actionKind string) string {
	key := actionKind
	if mapped, ok := attackProfileKeys[actionKind]; ok {
		key = mapped
	}
	if p, ok := s.tables.Attacks[key]; ok {
		return p.Speed
	}
	return "physical"
}

func (s *StaticOracles) Config() Config { return s.config }

// Manager bundles this StaticOracles value into a Manager.
func (s *StaticOracles) Manager() Manager {
	return Manager{Map: s, Items: s, Npcs: s, Tables: s, Action: s, Config: s}
}
