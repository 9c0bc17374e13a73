package monsterai

import (
	"github.com/Ko-stant/dungeon-ai-server/internal/entity"
	"github.com/Ko-stant/dungeon-ai-server/internal/species"
	"github.com/Ko-stant/dungeon-ai-server/internal/tile"
	"github.com/google/uuid"
)

// SelectMonsterType rolls a weighted random monster type for roomType. A
// room type with no configured weights falls back to equal weights over
// every registered type. It returns false only if none of the weighted
// types are registered.
func (s *Service) SelectMonsterType(roomType string) (string, bool) {
	weights := s.spawnCfg.RoomMonsterWeights[roomType]
	if len(weights) == 0 {
		weights = s.defaultWeights()
	}

	total := 0
	valid := make(map[string]int, len(weights))
	for t, w := range weights {
		if _, ok := s.registry.Get(t); !ok {
			continue
		}
		valid[t] = w
		total += w
	}
	if total <= 0 {
		return "", false
	}

	r := s.rng.Float64() * float64(total)
	cumulative := 0
	for _, t := range s.registry.Types() {
		w, ok := valid[t]
		if !ok {
			continue
		}
		cumulative += w
		if r <= float64(cumulative) {
			return t, true
		}
	}
	for t := range valid {
		return t, true
	}
	return "", false
}

func (s *Service) defaultWeights() map[string]int {
	out := make(map[string]int, len(s.registry.types))
	for t := range s.registry.types {
		out[t] = 5
	}
	return out
}

// CreateMonster instantiates a fresh monster of monsterType at (x, y) in
// roomID, wired to its species' shared Q-table and a fresh threat memory.
// Returns nil if monsterType is not registered.
func (s *Service) CreateMonster(monsterType string, x, y int, roomID string) *entity.Monster {
	cfg, ok := s.registry.Get(monsterType)
	if !ok {
		return nil
	}

	record := s.species.GetOrCreate(monsterType)
	m := &entity.Monster{
		ID:          "m_" + uuid.NewString()[:8],
		MonsterType: monsterType,
		Name:        cfg.Name,
		X:           x,
		Y:           y,
		RoomID:      roomID,
		Symbol:      cfg.Symbol,
		Color:       cfg.Color,
		Stats:       cfg.Stats,
		Behavior:    cfg.Behavior,
		Description: cfg.Description,
		Intelligence: entity.IntelligenceState{
			Generation:    record.Generation,
			QTableVersion: species.SchemaVersion,
		},
	}
	s.memoryFor(m.ID)
	return m
}

// SpawnMonstersInRoom rolls the spawn chance once for room, and on success
// places up to min(max_monsters_per_room, max(1, area/50)) monsters in valid floor
// tiles: not already occupied, and not adjacent to any door.
func (s *Service) SpawnMonstersInRoom(room *tile.Room, tiles [][]tile.Kind, occupied map[[2]int]bool, mapWidth, mapHeight int) []*entity.Monster {
	var spawned []*entity.Monster

	area := room.Width * room.Height
	if area < s.spawnCfg.MinRoomArea {
		return spawned
	}

	chance := s.spawnCfg.RoomSpawnChances[room.RoomType]
	if chance == 0 {
		chance = 0.5
	}
	if s.rng.Float64() > chance {
		return spawned
	}

	monsterCount := area / 50
	if monsterCount < 1 {
		monsterCount = 1
	}
	if monsterCount > s.spawnCfg.MaxMonstersPerRoom {
		monsterCount = s.spawnCfg.MaxMonstersPerRoom
	}

	validPositions := s.validSpawnPositions(room, tiles, occupied, mapWidth, mapHeight)
	if len(validPositions) == 0 {
		return spawned
	}

	for i := 0; i < monsterCount && len(validPositions) > 0; i++ {
		monsterType, ok := s.SelectMonsterType(room.RoomType)
		if !ok {
			continue
		}

		idx := s.rng.Intn(len(validPositions))
		pos := validPositions[idx]
		validPositions = append(validPositions[:idx], validPositions[idx+1:]...)

		m := s.CreateMonster(monsterType, pos[0], pos[1], room.ID)
		if m == nil {
			continue
		}
		spawned = append(spawned, m)
		occupied[pos] = true
	}

	return spawned
}

func (s *Service) validSpawnPositions(room *tile.Room, tiles [][]tile.Kind, occupied map[[2]int]bool, mapWidth, mapHeight int) [][2]int {
	var out [][2]int
	for y := room.Y + 1; y < room.Y+room.Height-1; y++ {
		for x := room.X + 1; x < room.X+room.Width-1; x++ {
			if tiles[y][x] != tile.Floor {
				continue
			}
			if occupied[[2]int{x, y}] {
				continue
			}
			if nearDoor(x, y, tiles, mapWidth, mapHeight) {
				continue
			}
			out = append(out, [2]int{x, y})
		}
	}
	return out
}

func nearDoor(x, y int, tiles [][]tile.Kind, mapWidth, mapHeight int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || nx >= mapWidth || ny < 0 || ny >= mapHeight {
				continue
			}
			if tiles[ny][nx].IsDoor() {
				return true
			}
		}
	}
	return false
}
