// Package content implements the content loader: it turns a directory of
// JSON files into the oracle.Manager the runtime worker bootstraps from.
// This is where the JSON-query and expression libraries earn their keep —
// the engine itself never imports them, so the zkVM guest never links
// gval/jsonpath and determinism is preserved.
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"
	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"

	"github.com/0xwonj/dungeon-sim/internal/game/oracle"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
)

// Pack is the parsed content directory, with every balance-table
// expression already evaluated to a concrete integer.
type Pack struct {
	Width, Height int32
	Tiles         map[primitives.Position]oracle.MapTile
	Initial       []oracle.InitialEntitySpec
	Items         map[primitives.ItemHandle]oracle.ItemDef
	Npcs          map[string]oracle.NpcTemplate
	Tables        oracle.Tables
	Config        oracle.Config
}

// Load reads map.json, items.json, npcs.json, tables.json and config.json
// from dir and returns the fully-evaluated Pack. Missing optional files
// are tolerated and yield empty collections.
func Load(dir string) (*Pack, error) {
	pack := &Pack{
		Tiles:  make(map[primitives.Position]oracle.MapTile),
		Items:  make(map[primitives.ItemHandle]oracle.ItemDef),
		Npcs:   make(map[string]oracle.NpcTemplate),
		Tables: oracle.Tables{Attacks: make(map[string]oracle.AttackProfile)},
	}

	if err := loadMap(filepath.Join(dir, "map.json"), pack); err != nil {
		return nil, fmt.Errorf("load map: %w", err)
	}
	if err := loadItems(filepath.Join(dir, "items.json"), pack); err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	if err := loadNpcs(filepath.Join(dir, "npcs.json"), pack); err != nil {
		return nil, fmt.Errorf("load npcs: %w", err)
	}
	if err := loadTables(filepath.Join(dir, "tables.json"), pack); err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	if err := loadConfig(filepath.Join(dir, "config.json"), pack); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return pack, nil
}

func readOptional(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// loadMap uses gjson because the map document is sparse and
// schema-light: most tiles are absent (implicit floor), and the few
// non-default entries are most naturally walked as a raw JSON array
// rather than unmarshaled into a rigid struct.
func loadMap(path string, pack *Pack) error {
	data, ok, err := readOptional(path)
	if err != nil || !ok {
		return err
	}
	root := gjson.ParseBytes(data)
	pack.Width = int32(root.Get("width").Int())
	pack.Height = int32(root.Get("height").Int())

	root.Get("tiles").ForEach(func(_, tile gjson.Result) bool {
		pos := primitives.Position{
			X: int32(tile.Get("x").Int()),
			Y: int32(tile.Get("y").Int()),
		}
		pack.Tiles[pos] = oracle.MapTile{Terrain: uint8(tile.Get("terrain").Int())}
		return true
	})

	root.Get("initial_entities").ForEach(func(_, ent gjson.Result) bool {
		pack.Initial = append(pack.Initial, oracle.InitialEntitySpec{
			ID:       primitives.EntityId(ent.Get("id").Uint()),
			Template: ent.Get("template").String(),
			Position: primitives.Position{
				X: int32(ent.Get("x").Int()),
				Y: int32(ent.Get("y").Int()),
			},
		})
		return true
	})
	return nil
}

// loadItems and loadConfig use the schema-regular sonic path: item and
// config documents are fixed-shape records, well served by a direct
// struct unmarshal.
func loadItems(path string, pack *Pack) error {
	data, ok, err := readOptional(path)
	if err != nil || !ok {
		return err
	}
	var defs []oracle.ItemDef
	if err := sonic.Unmarshal(data, &defs); err != nil {
		return err
	}
	for _, d := range defs {
		pack.Items[d.Handle] = d
	}
	return nil
}

func loadConfig(path string, pack *Pack) error {
	data, ok, err := readOptional(path)
	if err != nil || !ok {
		pack.Config = oracle.Config{ActivationRadius: 8, MaxHookDepth: 16, WaitCost: 100}
		return nil
	}
	if err := sonic.Unmarshal(data, &pack.Config); err != nil {
		return err
	}
	if pack.Config.MaxHookDepth == 0 {
		pack.Config.MaxHookDepth = 16
	}
	return nil
}

// loadNpcs again uses gjson: templates are heterogeneous (a
// DecisionScript field is present only for scripted NPCs).
func loadNpcs(path string, pack *Pack) error {
	data, ok, err := readOptional(path)
	if err != nil || !ok {
		return err
	}
	gjson.ParseBytes(data).ForEach(func(_, t gjson.Result) bool {
		tmpl := oracle.NpcTemplate{
			ID:             t.Get("id").String(),
			Name:           t.Get("name").String(),
			CoreStatsStr:   uint32(t.Get("strength").Uint()),
			CoreStatsDex:   uint32(t.Get("dexterity").Uint()),
			CoreStatsInt:   uint32(t.Get("intellect").Uint()),
			CoreStatsVit:   uint32(t.Get("vitality").Uint()),
			MaxHP:          uint32(t.Get("max_hp").Uint()),
			MaxStamina:     uint32(t.Get("max_stamina").Uint()),
			MaxMana:        uint32(t.Get("max_mana").Uint()),
			DecisionScript: t.Get("decision_script").String(),
		}
		pack.Npcs[tmpl.ID] = tmpl
		return true
	})
	return nil
}

// loadTables evaluates any string-valued numeric field as a gval
// arithmetic expression over the document's own top-level "constants"
// object, resolved through jsonpath so expressions can reference nested
// constants by path (e.g. "constants.STR"). This all happens once,
// host-side, before any oracle.Snapshot is ever built — the evaluated
// Tables only ever carries concrete integers downstream.
func loadTables(path string, pack *Pack) error {
	data, ok, err := readOptional(path)
	if err != nil || !ok {
		return nil
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	eval := func(raw any) (uint64, error) {
		switch v := raw.(type) {
		case float64:
			return uint64(v), nil
		case string:
			scope := func(path string) (any, error) {
				return jsonpath.Get(path, doc)
			}
			result, err := gval.Evaluate(v, doc, gval.Function("const", scope))
			if err != nil {
				return 0, fmt.Errorf("evaluate expression %q: %w", v, err)
			}
			switch n := result.(type) {
			case float64:
				return uint64(n), nil
			case int:
				return uint64(n), nil
			default:
				return 0, fmt.Errorf("expression %q did not evaluate to a number", v)
			}
		default:
			return 0, fmt.Errorf("unsupported balance field type %T", raw)
		}
	}

	if mv, ok := doc["movement"].(map[string]any); ok {
		if v, ok := mv["base_move_cost"]; ok {
			cost, err := eval(v)
			if err != nil {
				return err
			}
			pack.Tables.Movement.BaseCost = cost
		}
	}

	if attacks, ok := doc["attacks"].(map[string]any); ok {
		for name, raw := range attacks {
			am, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			profile := oracle.AttackProfile{Name: name}
			if s, ok := am["speed"].(string); ok {
				profile.Speed = s
			}
			if v, ok := am["base_cost"]; ok {
				cost, err := eval(v)
				if err != nil {
					return err
				}
				profile.BaseCost = cost
			}
			if v, ok := am["base_damage"]; ok {
				dmg, err := eval(v)
				if err != nil {
					return err
				}
				profile.BaseDamage = uint32(dmg)
			}
			pack.Tables.Attacks[name] = profile
		}
	}
	return nil
}

// Oracles builds the runtime oracle.Manager from a loaded Pack.
func (p *Pack) Oracles() oracle.Manager {
	so := oracle.NewStaticOracles(p.Width, p.Height, p.Tiles, p.Initial, p.Items, p.Npcs, p.Tables, p.Config)
	return so.Manager()
}
