/*
scenario.go Declarative network descriptions. A scenario references buses by name and is
replayed through a network.Builder to produce a Network.
*/

package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/telemetry/modbuscomm"
	"github.com/pelletier/go-toml/v2"
)

// Scenario is the file representation of a network.
type Scenario struct {
	Name             string          `json:"Name" toml:"Name"`
	FHz              float64         `json:"FHz,omitempty" toml:"FHz,omitempty"`
	Buses            []BusConfig     `json:"Buses" toml:"Buses"`
	ExtGrids         []ExtGridConfig `json:"ExtGrids" toml:"ExtGrids"`
	Loads            []LoadConfig    `json:"Loads" toml:"Loads"`
	StaticGenerators []SgenConfig    `json:"StaticGenerators" toml:"StaticGenerators"`
	Storages         []StorageConfig `json:"Storages" toml:"Storages"`
	Lines            []LineConfig    `json:"Lines" toml:"Lines"`
}

// BusConfig describes a bus.
type BusConfig struct {
	Name string  `json:"Name" toml:"Name"`
	VnKV float64 `json:"VnKV" toml:"VnKV"`
}

// ExtGridConfig describes the slack connection.
type ExtGridConfig struct {
	Name     string  `json:"Name" toml:"Name"`
	Bus      string  `json:"Bus" toml:"Bus"`
	VmPU     float64 `json:"VmPU" toml:"VmPU"`
	VaDegree float64 `json:"VaDegree" toml:"VaDegree"`
}

// LoadConfig describes a load.
type LoadConfig struct {
	Name  string  `json:"Name" toml:"Name"`
	Bus   string  `json:"Bus" toml:"Bus"`
	PMW   float64 `json:"PMW" toml:"PMW"`
	QMvar float64 `json:"QMvar" toml:"QMvar"`
}

// SgenConfig describes a static generator.
type SgenConfig struct {
	Name  string  `json:"Name" toml:"Name"`
	Bus   string  `json:"Bus" toml:"Bus"`
	PMW   float64 `json:"PMW" toml:"PMW"`
	QMvar float64 `json:"QMvar" toml:"QMvar"`
	Kind  string  `json:"Kind" toml:"Kind"`
}

// StorageConfig describes a storage unit. When SoCSource is set the state of charge is
// read from the battery management system before the network is built.
type StorageConfig struct {
	Name      string             `json:"Name" toml:"Name"`
	Bus       string             `json:"Bus" toml:"Bus"`
	PMW       float64            `json:"PMW" toml:"PMW"`
	MaxEMWh   float64            `json:"MaxEMWh" toml:"MaxEMWh"`
	MinEMWh   float64            `json:"MinEMWh" toml:"MinEMWh"`
	SoCPU     float64            `json:"SoCPU" toml:"SoCPU"`
	SoCSource *modbuscomm.Source `json:"SoCSource,omitempty" toml:"SoCSource,omitempty"`
}

// LineConfig describes a line between two named buses.
type LineConfig struct {
	Name      string  `json:"Name" toml:"Name"`
	From      string  `json:"From" toml:"From"`
	To        string  `json:"To" toml:"To"`
	LengthKm  float64 `json:"LengthKm" toml:"LengthKm"`
	ROhmPerKm float64 `json:"ROhmPerKm" toml:"ROhmPerKm"`
	XOhmPerKm float64 `json:"XOhmPerKm" toml:"XOhmPerKm"`
	CNfPerKm  float64 `json:"CNfPerKm" toml:"CNfPerKm"`
	MaxIKA    float64 `json:"MaxIKA" toml:"MaxIKA"`
}

// SoCReader reads a live state of charge.
type SoCReader interface {
	ReadSoC(ctx context.Context, src modbuscomm.Source) (float64, error)
}

// Load reads a scenario file. The codec is chosen by extension: .json or .toml.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}

	s := Scenario{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &s)
	case ".toml":
		err = toml.Unmarshal(data, &s)
	default:
		return Scenario{}, fmt.Errorf("scenario: unsupported file type %q", ext)
	}
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario: parse %s: %w", path, err)
	}
	return s, nil
}

// Build replays the scenario through a builder. reader may be nil, in which case
// configured SoC values are used as-is.
func Build(ctx context.Context, s Scenario, reader SoCReader) (network.Network, error) {
	b := network.NewBuilder(s.Name)
	if s.FHz > 0 {
		b.SetFHz(s.FHz)
	}

	buses := make(map[string]network.BusID)
	for _, bus := range s.Buses {
		if _, dup := buses[bus.Name]; dup {
			return network.Network{}, &network.ValidationError{Entity: "bus", Name: bus.Name, Reason: "duplicate bus name"}
		}
		buses[bus.Name] = b.AddBus(network.Bus{Name: bus.Name, VnKV: bus.VnKV})
	}

	lookup := func(entity, name, bus string) (network.BusID, error) {
		id, ok := buses[bus]
		if !ok {
			return -1, &network.ValidationError{Entity: entity, Name: name, Reason: fmt.Sprintf("bus %q does not exist", bus)}
		}
		return id, nil
	}

	for _, g := range s.ExtGrids {
		bus, err := lookup("ext_grid", g.Name, g.Bus)
		if err != nil {
			return network.Network{}, err
		}
		if _, err := b.AddExternalGrid(network.ExternalGrid{Name: g.Name, Bus: bus, VmPU: g.VmPU, VaDegree: g.VaDegree}); err != nil {
			return network.Network{}, err
		}
	}

	for _, l := range s.Loads {
		bus, err := lookup("load", l.Name, l.Bus)
		if err != nil {
			return network.Network{}, err
		}
		if _, err := b.AddLoad(network.Load{Name: l.Name, Bus: bus, PMW: l.PMW, QMvar: l.QMvar}); err != nil {
			return network.Network{}, err
		}
	}

	for _, g := range s.StaticGenerators {
		bus, err := lookup("sgen", g.Name, g.Bus)
		if err != nil {
			return network.Network{}, err
		}
		if _, err := b.AddStaticGenerator(network.StaticGenerator{Name: g.Name, Bus: bus, PMW: g.PMW, QMvar: g.QMvar, Kind: g.Kind}); err != nil {
			return network.Network{}, err
		}
	}

	for _, e := range s.Storages {
		bus, err := lookup("storage", e.Name, e.Bus)
		if err != nil {
			return network.Network{}, err
		}
		storage := network.Storage{
			Name:    e.Name,
			Bus:     bus,
			PMW:     e.PMW,
			MaxEMWh: e.MaxEMWh,
			MinEMWh: e.MinEMWh,
			SoCPU:   liveSoC(ctx, e, reader),
		}
		if _, err := b.AddStorage(storage); err != nil {
			return network.Network{}, err
		}
	}

	for _, l := range s.Lines {
		from, err := lookup("line", l.Name, l.From)
		if err != nil {
			return network.Network{}, err
		}
		to, err := lookup("line", l.Name, l.To)
		if err != nil {
			return network.Network{}, err
		}
		line := network.Line{
			Name:      l.Name,
			From:      from,
			To:        to,
			LengthKm:  l.LengthKm,
			ROhmPerKm: l.ROhmPerKm,
			XOhmPerKm: l.XOhmPerKm,
			CNfPerKm:  l.CNfPerKm,
			MaxIKA:    l.MaxIKA,
		}
		if _, err := b.AddLine(line); err != nil {
			return network.Network{}, err
		}
	}

	return b.Network(), nil
}

func liveSoC(ctx context.Context, e StorageConfig, reader SoCReader) float64 {
	if e.SoCSource == nil || reader == nil {
		return e.SoCPU
	}
	soc, err := reader.ReadSoC(ctx, *e.SoCSource)
	if err != nil {
		log.Printf("[Scenario] %s: soc read failed, using configured %.2f: %v\n", e.Name, e.SoCPU, err)
		return e.SoCPU
	}
	log.Printf("[Scenario] %s: soc %.3f read from %s:%s\n", e.Name, soc, e.SoCSource.IPAddr, e.SoCSource.Port)
	return soc
}
