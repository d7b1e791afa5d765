// Package config loads the game configuration file: the map catalog plus
// game-wide settings such as loot generation and the retirement timeout.
package config

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"time"

	"github.com/KirkDiggler/dogstory-api/internal/entities/world"
	"github.com/KirkDiggler/dogstory-api/internal/errors"
)

// Defaults used when the file leaves a setting out
const (
	DefaultDogSpeed          = 1.0
	DefaultBagCapacity       = 3
	DefaultRetirementSeconds = 60.0
)

// Game is the parsed configuration
type Game struct {
	Catalog             *world.Catalog
	LootPeriod          time.Duration
	LootProbability     float64
	RetirementThreshold time.Duration
}

type gameFile struct {
	DefaultDogSpeed     *float64          `json:"defaultDogSpeed"`
	DefaultBagCapacity  *int              `json:"defaultBagCapacity"`
	DogRetirementTime   *float64          `json:"dogRetirementTime"`
	LootGeneratorConfig *lootGeneratorDTO `json:"lootGeneratorConfig"`
	Maps                []mapDTO          `json:"maps"`
}

type lootGeneratorDTO struct {
	Period      float64 `json:"period"`
	Probability float64 `json:"probability"`
}

type mapDTO struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	DogSpeed    *float64         `json:"dogSpeed"`
	BagCapacity *int             `json:"bagCapacity"`
	LootTypes   []lootTypeDTO    `json:"lootTypes"`
	Roads       []roadDTO        `json:"roads"`
	Buildings   []world.Building `json:"buildings"`
	Offices     []officeDTO      `json:"offices"`
}

type roadDTO struct {
	X0 int  `json:"x0"`
	Y0 int  `json:"y0"`
	X1 *int `json:"x1"`
	Y1 *int `json:"y1"`
}

type officeDTO struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OffsetX int    `json:"offsetX"`
	OffsetY int    `json:"offsetY"`
}

type lootTypeDTO struct {
	Name     string  `json:"name"`
	File     string  `json:"file"`
	Type     string  `json:"type"`
	Rotation *int    `json:"rotation"`
	Color    *string `json:"color"`
	Scale    float64 `json:"scale"`
	Value    int     `json:"value"`
}

// Load reads and parses the configuration file at path
func Load(path string) (*Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Configurationf("cannot read config file %q: %v", path, err)
	}
	return Parse(data)
}

// Parse builds the configuration from JSON
func Parse(data []byte) (*Game, error) {
	var file gameFile
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Configurationf("malformed config: %v", err)
	}

	dogSpeed := DefaultDogSpeed
	if file.DefaultDogSpeed != nil {
		dogSpeed = *file.DefaultDogSpeed
	}
	bagCapacity := DefaultBagCapacity
	if file.DefaultBagCapacity != nil {
		bagCapacity = *file.DefaultBagCapacity
	}
	retirement := DefaultRetirementSeconds
	if file.DogRetirementTime != nil {
		retirement = *file.DogRetirementTime
	}
	if retirement < 0 || math.IsNaN(retirement) {
		return nil, errors.Configuration("dogRetirementTime must not be negative")
	}

	if file.LootGeneratorConfig == nil {
		return nil, errors.Configuration("lootGeneratorConfig is required")
	}
	lg := file.LootGeneratorConfig
	if lg.Period <= 0 || math.IsNaN(lg.Period) {
		return nil, errors.Configuration("lootGeneratorConfig.period must be positive")
	}
	if lg.Probability < 0 || lg.Probability > 1 || math.IsNaN(lg.Probability) {
		return nil, errors.Configuration("lootGeneratorConfig.probability must be between 0 and 1")
	}

	if len(file.Maps) == 0 {
		return nil, errors.Configuration("config has no maps")
	}
	maps := make([]*world.Map, 0, len(file.Maps))
	for _, dto := range file.Maps {
		m, err := dto.toMap(dogSpeed, bagCapacity)
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}

	catalog, err := world.NewCatalog(maps...)
	if err != nil {
		return nil, err
	}

	return &Game{
		Catalog:             catalog,
		LootPeriod:          seconds(lg.Period),
		LootProbability:     lg.Probability,
		RetirementThreshold: seconds(retirement),
	}, nil
}

func (dto mapDTO) toMap(defaultSpeed float64, defaultCapacity int) (*world.Map, error) {
	m := &world.Map{
		ID:          dto.ID,
		Name:        dto.Name,
		DogSpeed:    defaultSpeed,
		BagCapacity: defaultCapacity,
		Buildings:   dto.Buildings,
		Roads:       make([]world.Road, 0, len(dto.Roads)),
		Offices:     make([]world.Office, 0, len(dto.Offices)),
		LootTypes:   make([]world.LootType, 0, len(dto.LootTypes)),
	}
	if dto.DogSpeed != nil {
		m.DogSpeed = *dto.DogSpeed
	}
	if dto.BagCapacity != nil {
		m.BagCapacity = *dto.BagCapacity
	}

	for i, r := range dto.Roads {
		start := world.Point{X: r.X0, Y: r.Y0}
		switch {
		case r.X1 != nil && r.Y1 != nil:
			return nil, errors.Configurationf("map %q road %d sets both x1 and y1", dto.ID, i)
		case r.X1 != nil:
			m.Roads = append(m.Roads, world.NewHorizontalRoad(start, *r.X1))
		case r.Y1 != nil:
			m.Roads = append(m.Roads, world.NewVerticalRoad(start, *r.Y1))
		default:
			return nil, errors.Configurationf("map %q road %d has unknown orientation", dto.ID, i)
		}
	}
	for _, o := range dto.Offices {
		m.Offices = append(m.Offices, world.Office{
			ID:       o.ID,
			Position: world.Point{X: o.X, Y: o.Y},
			Offset:   world.Point{X: o.OffsetX, Y: o.OffsetY},
		})
	}
	for _, lt := range dto.LootTypes {
		m.LootTypes = append(m.LootTypes, world.LootType{
			Name:     lt.Name,
			File:     lt.File,
			Type:     lt.Type,
			Rotation: lt.Rotation,
			Color:    lt.Color,
			Scale:    lt.Scale,
			Value:    lt.Value,
		})
	}
	return m, nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
