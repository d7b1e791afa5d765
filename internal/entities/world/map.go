package world

import (
	"github.com/KirkDiggler/dogstory-api/internal/errors"
)

// Building is a decorative rectangle, it does not block movement
type Building struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"w"`
	Height int `json:"h"`
}

// Office is a pickup point where a dog's bag turns into score
type Office struct {
	ID       string
	Position Point
	Offset   Point
}

// LootType is a catalog entry. Items refer to it by index.
type LootType struct {
	Name     string
	File     string
	Type     string
	Rotation *int
	Color    *string
	Scale    float64
	Value    int
}

// Map is a static level description, immutable after load
type Map struct {
	ID          string
	Name        string
	DogSpeed    float64
	BagCapacity int
	Roads       []Road
	Buildings   []Building
	Offices     []Office
	LootTypes   []LootType
}

// GetDogSpeed returns the speed of dogs on this map
func (m *Map) GetDogSpeed() float64 {
	return m.DogSpeed
}

// GetBagCapacity returns how many items a dog can carry on this map
func (m *Map) GetBagCapacity() int {
	return m.BagCapacity
}

// GetLootTypes returns the loot catalog
func (m *Map) GetLootTypes() []LootType {
	return m.LootTypes
}

// LootValue returns the value of the loot type at index, zero when out of range
func (m *Map) LootValue(index int) int {
	if index < 0 || index >= len(m.LootTypes) {
		return 0
	}
	return m.LootTypes[index].Value
}

// Validate checks the invariants every loaded map must hold
func (m *Map) Validate() error {
	if m.ID == "" {
		return errors.Configuration("map id is required")
	}
	if len(m.Roads) == 0 {
		return errors.Configurationf("map %q has no roads", m.ID)
	}
	for _, road := range m.Roads {
		if err := road.Validate(); err != nil {
			return errors.Wrapf(err, "map %q", m.ID)
		}
	}
	if len(m.LootTypes) == 0 {
		return errors.Configurationf("map %q has no loot types", m.ID)
	}
	if m.DogSpeed < 0 {
		return errors.Configurationf("map %q has negative dog speed", m.ID)
	}
	if m.BagCapacity < 0 {
		return errors.Configurationf("map %q has negative bag capacity", m.ID)
	}

	offices := make(map[string]struct{}, len(m.Offices))
	for _, office := range m.Offices {
		if _, dup := offices[office.ID]; dup {
			return errors.Configurationf("map %q has duplicate office %q", m.ID, office.ID)
		}
		offices[office.ID] = struct{}{}
	}
	return nil
}

// Catalog is the set of maps loaded at startup. It is read-only once built.
type Catalog struct {
	maps  []*Map
	index map[string]int
}

// NewCatalog validates the maps and indexes them by id
func NewCatalog(maps ...*Map) (*Catalog, error) {
	c := &Catalog{
		maps:  make([]*Map, 0, len(maps)),
		index: make(map[string]int, len(maps)),
	}
	for _, m := range maps {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[m.ID]; dup {
			return nil, errors.Configurationf("map %q already exists", m.ID)
		}
		c.index[m.ID] = len(c.maps)
		c.maps = append(c.maps, m)
	}
	return c, nil
}

// FindMap looks a map up by id
func (c *Catalog) FindMap(id string) (*Map, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.maps[i], true
}

// Maps returns the maps in load order
func (c *Catalog) Maps() []*Map {
	out := make([]*Map, len(c.maps))
	copy(out, c.maps)
	return out
}
