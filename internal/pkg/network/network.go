/*
network.go Representation of a single microgrid study network. Entities are created once
through a Builder and are read-only afterwards.
*/

package network

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultFHz is the nominal system frequency used when none is configured.
const DefaultFHz = 50.0

// BusID identifies a bus within the network that created it.
type BusID int

// GridID identifies an external grid connection.
type GridID int

// LoadID identifies a load.
type LoadID int

// GenID identifies a static generator.
type GenID int

// StorageID identifies a storage unit.
type StorageID int

// LineID identifies a line.
type LineID int

// Bus is an electrical node of the network.
type Bus struct {
	Name string  `json:"Name"`
	VnKV float64 `json:"VnKV"`
}

// ExternalGrid is the slack connection that fixes voltage magnitude and angle.
type ExternalGrid struct {
	Name     string  `json:"Name"`
	Bus      BusID   `json:"Bus"`
	VmPU     float64 `json:"VmPU"`
	VaDegree float64 `json:"VaDegree"`
}

// Load is a constant power demand connected to a bus.
type Load struct {
	Name  string  `json:"Name"`
	Bus   BusID   `json:"Bus"`
	PMW   float64 `json:"PMW"`
	QMvar float64 `json:"QMvar"`
}

// DefaultKind is the solver type of a static generator with no Kind.
const DefaultKind = "PV"

// StaticGenerator is a constant power injection, for example a PV inverter.
type StaticGenerator struct {
	Name  string  `json:"Name"`
	Bus   BusID   `json:"Bus"`
	PMW   float64 `json:"PMW"`
	QMvar float64 `json:"QMvar"`
	Kind  string  `json:"Kind"`
}

// Storage is an energy storage unit. PMW is the dispatched power rating,
// positive when charging.
type Storage struct {
	Name    string  `json:"Name"`
	Bus     BusID   `json:"Bus"`
	PMW     float64 `json:"PMW"`
	MaxEMWh float64 `json:"MaxEMWh"`
	MinEMWh float64 `json:"MinEMWh"`
	SoCPU   float64 `json:"SoCPU"`
}

// Line connects two buses. From and To are kept in the order supplied so that
// flow direction can be reported against them.
type Line struct {
	Name      string  `json:"Name"`
	From      BusID   `json:"From"`
	To        BusID   `json:"To"`
	LengthKm  float64 `json:"LengthKm"`
	ROhmPerKm float64 `json:"ROhmPerKm"`
	XOhmPerKm float64 `json:"XOhmPerKm"`
	CNfPerKm  float64 `json:"CNfPerKm"`
	MaxIKA    float64 `json:"MaxIKA"`
}

// Network is an immutable snapshot produced by a Builder.
type Network struct {
	pid      uuid.UUID
	name     string
	fHz      float64
	buses    []Bus
	grids    []ExternalGrid
	loads    []Load
	gens     []StaticGenerator
	storages []Storage
	lines    []Line
}

// PID is an accessor for the network's process id.
func (n Network) PID() uuid.UUID {
	return n.pid
}

// Name is an accessor for the network's configured name.
func (n Network) Name() string {
	return n.name
}

// FHz is the nominal frequency of the network.
func (n Network) FHz() float64 {
	return n.fHz
}

// Bus returns the bus with the given id.
func (n Network) Bus(id BusID) (Bus, bool) {
	if int(id) < 0 || int(id) >= len(n.buses) {
		return Bus{}, false
	}
	return n.buses[id], true
}

// ExternalGrid returns the external grid with the given id.
func (n Network) ExternalGrid(id GridID) (ExternalGrid, bool) {
	if int(id) < 0 || int(id) >= len(n.grids) {
		return ExternalGrid{}, false
	}
	return n.grids[id], true
}

// Load returns the load with the given id.
func (n Network) Load(id LoadID) (Load, bool) {
	if int(id) < 0 || int(id) >= len(n.loads) {
		return Load{}, false
	}
	return n.loads[id], true
}

// StaticGenerator returns the static generator with the given id.
func (n Network) StaticGenerator(id GenID) (StaticGenerator, bool) {
	if int(id) < 0 || int(id) >= len(n.gens) {
		return StaticGenerator{}, false
	}
	return n.gens[id], true
}

// Storage returns the storage unit with the given id.
func (n Network) Storage(id StorageID) (Storage, bool) {
	if int(id) < 0 || int(id) >= len(n.storages) {
		return Storage{}, false
	}
	return n.storages[id], true
}

// Line returns the line with the given id.
func (n Network) Line(id LineID) (Line, bool) {
	if int(id) < 0 || int(id) >= len(n.lines) {
		return Line{}, false
	}
	return n.lines[id], true
}

// Buses returns a copy of the bus table, indexed by BusID.
func (n Network) Buses() []Bus { return append([]Bus(nil), n.buses...) }

// ExternalGrids returns a copy of the external grid table, indexed by GridID.
func (n Network) ExternalGrids() []ExternalGrid { return append([]ExternalGrid(nil), n.grids...) }

// Loads returns a copy of the load table, indexed by LoadID.
func (n Network) Loads() []Load { return append([]Load(nil), n.loads...) }

// StaticGenerators returns a copy of the static generator table, indexed by GenID.
func (n Network) StaticGenerators() []StaticGenerator {
	return append([]StaticGenerator(nil), n.gens...)
}

// Storages returns a copy of the storage table, indexed by StorageID.
func (n Network) Storages() []Storage { return append([]Storage(nil), n.storages...) }

// Lines returns a copy of the line table, indexed by LineID.
func (n Network) Lines() []Line { return append([]Line(nil), n.lines...) }

// Count returns the total number of entities in the network.
func (n Network) Count() int {
	return len(n.buses) + len(n.grids) + len(n.loads) + len(n.gens) + len(n.storages) + len(n.lines)
}

// Validate checks the network is solvable: exactly one external grid must be present.
// Bus references are checked when entities are created.
func (n Network) Validate() error {
	switch len(n.grids) {
	case 1:
		return nil
	case 0:
		return &ValidationError{Entity: "network", Name: n.name, Reason: "no external grid connection"}
	default:
		reason := fmt.Sprintf("%d external grid connections, exactly one is required", len(n.grids))
		return &ValidationError{Entity: "network", Name: n.name, Reason: reason}
	}
}

// Summary lists the entity tables of the network and their sizes.
func (n Network) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "This network (%s) includes the following parameter tables:\n", n.name)
	tables := []struct {
		name  string
		count int
	}{
		{"bus", len(n.buses)},
		{"ext_grid", len(n.grids)},
		{"load", len(n.loads)},
		{"sgen", len(n.gens)},
		{"storage", len(n.storages)},
		{"line", len(n.lines)},
	}
	for _, t := range tables {
		if t.count == 0 {
			continue
		}
		fmt.Fprintf(&sb, "   - %s (%d elements)\n", t.name, t.count)
	}
	return sb.String()
}
