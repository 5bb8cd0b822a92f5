package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	ReportEveryTicks   int `yaml:"report_every_ticks"`

	Site         Site         `yaml:"site"`
	Layout       Layout       `yaml:"layout"`
	Construction Construction `yaml:"construction"`
	Threat       Threat       `yaml:"threat"`
	Mason        Mason        `yaml:"mason"`
}

type Site struct {
	MinDefenseLevel int      `yaml:"min_defense_level"`
	EmergencySites  []string `yaml:"emergency_sites"`
	BoundaryMargin  int      `yaml:"boundary_margin"`
}

type Layout struct {
	Radius        int `yaml:"radius"`
	RampartOffset int `yaml:"rampart_offset"`
}

type Construction struct {
	RepairGranularity int64  `yaml:"repair_granularity"`
	RampartFloor      int64  `yaml:"rampart_floor"`
	TowerRangeFloor   int    `yaml:"tower_range_floor"`
	RecheckBaseTicks  uint64 `yaml:"recheck_base_ticks"`
}

type DamageBucket struct {
	MaxRange int   `yaml:"max_range"`
	Damage   int64 `yaml:"damage"`
}

type Threat struct {
	SafetyMargin    int64          `yaml:"safety_margin"`
	Falloff         []DamageBucket `yaml:"falloff"`
	ShelterChance   float64        `yaml:"shelter_chance"`
	LabShelterLimit int            `yaml:"lab_shelter_limit"`
}

type Mason struct {
	EnergyPerMason       int64  `yaml:"energy_per_mason"`
	NeedMasonRampartHits int64  `yaml:"need_mason_rampart_hits"`
	NeedMasonMinLevel    int    `yaml:"need_mason_min_level"`
	HazmatMax            int    `yaml:"hazmat_max"`
	HazmatRepairRate     int    `yaml:"hazmat_repair_rate"`
	RampartBand          int64  `yaml:"rampart_band"`
	RampartRecheckTicks  uint64 `yaml:"rampart_recheck_ticks"`
	SandbagThreshold     int64  `yaml:"sandbag_threshold"`
	RateLogEveryTicks    uint64 `yaml:"rate_log_every_ticks"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         5,
		SnapshotEveryTicks: 500,
		ReportEveryTicks:   1,
		Site: Site{
			MinDefenseLevel: 5,
			BoundaryMargin:  1,
		},
		Layout: Layout{
			Radius:        7,
			RampartOffset: 2,
		},
		Construction: Construction{
			RepairGranularity: 800,
			RampartFloor:      100000,
			TowerRangeFloor:   5,
			RecheckBaseTicks:  1000,
		},
		Threat: Threat{
			SafetyMargin: 10000000,
			Falloff: []DamageBucket{
				{MaxRange: 0, Damage: 10000000},
				{MaxRange: 2, Damage: 5000000},
			},
			ShelterChance:   0.1,
			LabShelterLimit: 8,
		},
		Mason: Mason{
			EnergyPerMason:       500000,
			NeedMasonRampartHits: 50000000,
			NeedMasonMinLevel:    7,
			HazmatMax:            9,
			HazmatRepairRate:     3000,
			RampartBand:          100000,
			RampartRecheckTicks:  500,
			SandbagThreshold:     1000000,
			RateLogEveryTicks:    10,
		},
	}
}

// Load reads tuning.yaml on top of Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.Construction.RepairGranularity <= 0 {
		return fmt.Errorf("construction.repair_granularity must be > 0")
	}
	if t.Mason.HazmatRepairRate <= 0 {
		return fmt.Errorf("mason.hazmat_repair_rate must be > 0")
	}
	if t.Mason.EnergyPerMason <= 0 {
		return fmt.Errorf("mason.energy_per_mason must be > 0")
	}
	last := -1
	for _, b := range t.Threat.Falloff {
		if b.MaxRange <= last {
			return fmt.Errorf("threat.falloff must be sorted by max_range")
		}
		last = b.MaxRange
	}
	return nil
}

// Digest identifies a tuning by the sha256 of its JSON form.
func Digest(t Tuning) string {
	b, err := json.Marshal(t)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
