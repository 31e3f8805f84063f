package oracle

import "github.com/0xwonj/dungeon-sim/internal/game/primitives"

// Snapshot is the serializable capture of everything an action may read:
// it must be byte-exact across re-serializations of the same runtime
// state, because its hash is part of the proof's implicit input. Snapshot
// carries only plain values (no interfaces, no maps with
// non-deterministic iteration baked into the wire form) so that
// encoding/json — and the guest's identical decode — always produce the
// same bytes for the same logical content.
type Snapshot struct {
	Width         int32                `json:"width"`
	Height        int32                `json:"height"`
	Tiles         []TileEntry          `json:"tiles"`
	InitialEntities []InitialEntitySpec `json:"initial_entities"`
	Items         []ItemDef            `json:"items"`
	NpcTemplates  []NpcTemplate        `json:"npc_templates"`
	Tables        Tables               `json:"tables"`
	Config        Config               `json:"config"`
}

// TileEntry is one non-default tile, stored as an explicit (position,
// tile) pair so the snapshot's tile list has a single canonical,
// sortable order instead of depending on map iteration order.
type TileEntry struct {
	Position primitives.Position `json:"position"`
	Tile     MapTile             `json:"tile"`
}

// Capture builds a Snapshot from a live Manager. Lists are sorted into a
// canonical order before returning, which is what makes the result
// byte-exact across repeated captures of the same content.
func Capture(m Manager) Snapshot {
	s := Snapshot{}

	if m.Map != nil {
		s.Width, s.Height = m.Map.Dimensions()
		for pos, tile := range m.Map.NonDefaultTiles() {
			s.Tiles = append(s.Tiles, TileEntry{Position: pos, Tile: tile})
		}
		sortTileEntries(s.Tiles)
		s.InitialEntities = append([]InitialEntitySpec(nil), m.Map.InitialEntities()...)
		sortInitialEntities(s.InitialEntities)
	}
	if m.Items != nil {
		s.Items = append([]ItemDef(nil), m.Items.AllItems()...)
		sortItemDefs(s.Items)
	}
	if m.Npcs != nil {
		s.NpcTemplates = append([]NpcTemplate(nil), m.Npcs.AllTemplates()...)
		sortNpcTemplates(s.NpcTemplates)
	}
	if m.Tables != nil {
		s.Tables = m.Tables.Tables()
	}
	if m.Config != nil {
		s.Config = m.Config.Config()
	}
	return s
}

func sortTileEntries(e []TileEntry) {
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && lessPos(e[j].Position, e[j-1].Position); j-- {
			e[j-1], e[j] = e[j], e[j-1]
		}
	}
}

func lessPos(a, b primitives.Position) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

func sortInitialEntities(e []InitialEntitySpec) {
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && e[j].ID < e[j-1].ID; j-- {
			e[j-1], e[j] = e[j], e[j-1]
		}
	}
}

func sortItemDefs(e []ItemDef) {
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && e[j].Handle < e[j-1].Handle; j-- {
			e[j-1], e[j] = e[j], e[j-1]
		}
	}
}

func sortNpcTemplates(e []NpcTemplate) {
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && e[j].ID < e[j-1].ID; j-- {
			e[j-1], e[j] = e[j], e[j-1]
		}
	}
}

// Bundle implements Manager's oracle interfaces by linear lookup into a
// Snapshot, exactly as the zkVM guest would. It is also usable host-side
// when only the snapshot is at hand (e.g. replaying a proof request
// without the live content pack).
type Bundle struct {
	snap Snapshot
}

// NewBundle builds a Bundle from a Snapshot.
func NewBundle(snap Snapshot) *Bundle { return &Bundle{snap: snap} }

func (b *Bundle) Dimensions() (int32, int32) { return b.snap.Width, b.snap.Height }

func (b *Bundle) TileAt(pos primitives.Position) (MapTile, bool) {
	for _, e := range b.snap.Tiles {
		if e.Position == pos {
			return e.Tile, true
		}
	}
	return MapTile{}, false
}

func (b *Bundle) InitialEntities() []InitialEntitySpec { return b.snap.InitialEntities }

func (b *Bundle) NonDefaultTiles() map[primitives.Position]MapTile {
	out := make(map[primitives.Position]MapTile, len(b.snap.Tiles))
	for _, e := range b.snap.Tiles {
		out[e.Position] = e.Tile
	}
	return out
}

func (b *Bundle) ItemDef(handle primitives.ItemHandle) (ItemDef, bool) {
	for _, d := range b.snap.Items {
		if d.Handle == handle {
			return d, true
		}
	}
	return ItemDef{}, false
}

func (b *Bundle) AllItems() []ItemDef { return b.snap.Items }

func (b *Bundle) Template(id string) (NpcTemplate, bool) {
	for _, t := range b.snap.NpcTemplates {
		if t.ID == id {
			return t, true
		}
	}
	return NpcTemplate{}, false
}

func (b *Bundle) AllTemplates() []NpcTemplate { return b.snap.NpcTemplates }

func (b *Bundle) Tables() Tables { return b.snap.Tables }

func (b *Bundle) SpeedClassFor(actionKind string) string {
	key := actionKind
	if mapped, ok := attackProfileKeys[actionKind]; ok {
		key = mapped
	}
	if p, ok := b.snap.Tables.Attacks[key]; ok {
		return p.Speed
	}
	return "physical"
}

func (b *Bundle) Config() Config { return b.snap.Config }

// Manager adapts the Bundle's individual-interface methods into a
// Manager, so guest code builds exactly one object and gets every oracle
// trait from it.
func (b *Bundle) Manager() Manager {
	return Manager{Map: b, Items: b, Npcs: b, Tables: b, Action: b, Config: b}
}
