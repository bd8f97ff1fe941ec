package network

import (
	"fmt"

	"github.com/google/uuid"
)

// Builder accumulates entities for a single network. The zero value is not usable,
// call NewBuilder.
type Builder struct {
	net Network
}

// NewBuilder returns an empty builder for a network with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{net: Network{
		pid:  uuid.New(),
		name: name,
		fHz:  DefaultFHz,
	}}
}

// SetFHz overrides the nominal frequency.
func (b *Builder) SetFHz(hz float64) {
	b.net.fHz = hz
}

// AddBus creates a bus and returns its id.
func (b *Builder) AddBus(bus Bus) BusID {
	b.net.buses = append(b.net.buses, bus)
	return BusID(len(b.net.buses) - 1)
}

// AddExternalGrid creates the slack connection at an existing bus.
func (b *Builder) AddExternalGrid(g ExternalGrid) (GridID, error) {
	if err := b.checkBus("ext_grid", g.Name, g.Bus); err != nil {
		return -1, err
	}
	b.net.grids = append(b.net.grids, g)
	return GridID(len(b.net.grids) - 1), nil
}

// AddLoad creates a load at an existing bus.
func (b *Builder) AddLoad(l Load) (LoadID, error) {
	if err := b.checkBus("load", l.Name, l.Bus); err != nil {
		return -1, err
	}
	b.net.loads = append(b.net.loads, l)
	return LoadID(len(b.net.loads) - 1), nil
}

// AddStaticGenerator creates a static generator at an existing bus.
func (b *Builder) AddStaticGenerator(g StaticGenerator) (GenID, error) {
	if err := b.checkBus("sgen", g.Name, g.Bus); err != nil {
		return -1, err
	}
	b.net.gens = append(b.net.gens, g)
	return GenID(len(b.net.gens) - 1), nil
}

// AddStorage creates a storage unit at an existing bus.
func (b *Builder) AddStorage(s Storage) (StorageID, error) {
	if err := b.checkBus("storage", s.Name, s.Bus); err != nil {
		return -1, err
	}
	b.net.storages = append(b.net.storages, s)
	return StorageID(len(b.net.storages) - 1), nil
}

// AddLine creates a line between two existing buses.
func (b *Builder) AddLine(l Line) (LineID, error) {
	if err := b.checkBus("line", l.Name, l.From); err != nil {
		return -1, err
	}
	if err := b.checkBus("line", l.Name, l.To); err != nil {
		return -1, err
	}
	b.net.lines = append(b.net.lines, l)
	return LineID(len(b.net.lines) - 1), nil
}

// Network returns a snapshot of the entities added so far.
func (b *Builder) Network() Network {
	n := b.net
	n.buses = n.Buses()
	n.grids = n.ExternalGrids()
	n.loads = n.Loads()
	n.gens = n.StaticGenerators()
	n.storages = n.Storages()
	n.lines = n.Lines()
	return n
}

func (b *Builder) checkBus(entity, name string, id BusID) error {
	if _, ok := b.net.Bus(id); !ok {
		return &ValidationError{Entity: entity, Name: name, Reason: fmt.Sprintf("bus %d does not exist", id)}
	}
	return nil
}
