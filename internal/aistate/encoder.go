// Package aistate discretizes a monster's continuous perception of the
// world (health, nearby threats, terrain) into a flat Q-table index.
package aistate

// State space dimensions. Total size is the product:
// 3 * 4 * 4 * 3 * 3 * 9 * 2 = 7776.
const (
	hpBins        = 3
	enemyBins     = 4
	allyBins      = 4
	roomCatBins   = 3
	distanceBins  = 3
	directionBins = 9
	corridorBins  = 2

	// StateSpace is the total number of discrete states the encoder can
	// produce; Q-tables are sized to StateSpace * action count.
	StateSpace = hpBins * enemyBins * allyBins * roomCatBins * distanceBins * directionBins * corridorBins
)

var shape = [7]int{hpBins, enemyBins, allyBins, roomCatBins, distanceBins, directionBins, corridorBins}

// Observation is the raw continuous world state fed to Encode.
type Observation struct {
	HPRatio          float64
	EnemyCount       int
	AllyCount        int
	RoomCategory     int // 0=combat, 1=safe, 2=dangerous
	DistanceToThreat int // Chebyshev distance to nearest threat
	ThreatDirection  int // 0-7 compass, 8 = none
	InCorridor       bool
}

// Indices is the decomposed per-dimension bin of a flat state index.
type Indices struct {
	HP, Enemy, Ally, RoomCategory, Distance, Direction, Corridor int
}

// bucket assigns value to the first bin whose threshold it does not
// exceed, clamping to the last bin otherwise. Mirrors a simple
// threshold-scan bucketer: value <= bins[i] -> bin i.
func bucket(value float64, bins []float64) int {
	for i, threshold := range bins {
		if value <= threshold {
			return i
		}
	}
	return len(bins) - 1
}

func bucketInt(value int, bins []int) int {
	for i, threshold := range bins {
		if value <= threshold {
			return i
		}
	}
	return len(bins) - 1
}

var hpThresholds = []float64{0.33, 0.66, 1.0}
var enemyThresholds = []int{0, 1, 2, 3}
var allyThresholds = []int{0, 1, 2, 3}
var distanceThresholds = []int{1, 4, 999}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Encode converts an Observation into a flat state index in
// [0, StateSpace) plus the per-dimension indices it was built from.
func Encode(o Observation) (int, Indices) {
	idx := Indices{
		HP:           bucket(o.HPRatio, hpThresholds),
		Enemy:        bucketInt(o.EnemyCount, enemyThresholds),
		Ally:         bucketInt(o.AllyCount, allyThresholds),
		RoomCategory: clampInt(o.RoomCategory, 0, roomCatBins-1),
		Distance:     bucketInt(o.DistanceToThreat, distanceThresholds),
		Direction:    clampInt(o.ThreatDirection, 0, directionBins-1),
	}
	if o.InCorridor {
		idx.Corridor = 1
	}
	return flatten(idx), idx
}

func flatten(idx Indices) int {
	values := [7]int{idx.HP, idx.Enemy, idx.Ally, idx.RoomCategory, idx.Distance, idx.Direction, idx.Corridor}
	flat := 0
	stride := 1
	for i := len(values) - 1; i >= 0; i-- {
		flat += values[i] * stride
		stride *= shape[i]
	}
	return flat
}

// Decode recovers the per-dimension indices from a flat state index.
func Decode(flatIndex int) Indices {
	values := [7]int{}
	remaining := flatIndex
	for i := len(shape) - 1; i >= 0; i-- {
		values[i] = remaining % shape[i]
		remaining /= shape[i]
	}
	return Indices{
		HP: values[0], Enemy: values[1], Ally: values[2], RoomCategory: values[3],
		Distance: values[4], Direction: values[5], Corridor: values[6],
	}
}

var hpLabels = [3]string{"LOW", "MEDIUM", "HIGH"}
var distanceLabels = [3]string{"CLOSE", "MEDIUM", "FAR"}
var roomCategoryLabels = [3]string{"combat", "safe", "dangerous"}
var directionLabels = [9]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW", "NONE"}

// Description is a human-readable rendering of a state index, used for
// debug endpoints and logging.
type Description struct {
	HP              string
	Enemies         int
	EnemiesCapped   bool
	Allies          int
	AlliesCapped    bool
	RoomCategory    string
	Distance        string
	ThreatDirection string
	InCorridor      bool
}

// Describe renders a flat state index as a Description.
func Describe(flatIndex int) Description {
	idx := Decode(flatIndex)
	return Description{
		HP:              hpLabels[idx.HP],
		Enemies:         idx.Enemy,
		EnemiesCapped:   idx.Enemy >= enemyBins-1,
		Allies:          idx.Ally,
		AlliesCapped:    idx.Ally >= allyBins-1,
		RoomCategory:    roomCategoryLabels[idx.RoomCategory],
		Distance:        distanceLabels[idx.Distance],
		ThreatDirection: directionLabels[idx.Direction],
		InCorridor:      idx.Corridor == 1,
	}
}

// GateByIntelligence forces an observation toward its "no threat" bins when
// the monster's intelligence is too low to perceive nearby combatants
// tactically: it reports no enemies, maximum distance, and no direction.
// Rooms and corridor state are still perceived since those are passive
// terrain facts, not tactical reads of other combatants.
func GateByIntelligence(o Observation, intelligence int) Observation {
	const gateThreshold = 6
	if intelligence > gateThreshold {
		return o
	}
	o.EnemyCount = 0
	o.DistanceToThreat = distanceThresholds[len(distanceThresholds)-1]
	o.ThreatDirection = directionBins - 1 // NONE
	return o
}
