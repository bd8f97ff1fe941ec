package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/telemetry/modbuscomm"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

type fakeSoC struct {
	soc  float64
	err  error
	srcs []modbuscomm.Source
}

func (f *fakeSoC) ReadSoC(ctx context.Context, src modbuscomm.Source) (float64, error) {
	f.srcs = append(f.srcs, src)
	return f.soc, f.err
}

func TestLoadMatchesBuiltin(t *testing.T) {
	for _, name := range []string{"microgrid.json", "microgrid.toml"} {
		t.Run(name, func(t *testing.T) {
			s, err := Load(filepath.Join("testdata", name))
			assert.NilError(t, err)
			assert.DeepEqual(t, s, Microgrid())
		})
	}
}

func TestLoadUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.yaml")
	assert.NilError(t, os.WriteFile(path, []byte("Name: x"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.json")
	assert.NilError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "scenario: parse")
}

func TestBuildMicrogrid(t *testing.T) {
	net, err := Build(context.Background(), Microgrid(), nil)
	assert.NilError(t, err)
	assert.NilError(t, net.Validate())

	assert.Equal(t, len(net.Buses()), 5)
	assert.Equal(t, len(net.Lines()), 4)
	assert.Equal(t, net.Count(), 5+1+1+1+1+4)

	gen, ok := net.StaticGenerator(0)
	assert.Assert(t, ok)
	assert.Equal(t, gen.Name, "Solar Generator")
	assert.Equal(t, gen.PMW, 3.0)
	assert.Equal(t, gen.Bus, network.BusID(1))

	ess, ok := net.Storage(0)
	assert.Assert(t, ok)
	assert.Equal(t, ess, network.Storage{Name: "Battery Storage", Bus: 3, PMW: 1, MaxEMWh: 5, MinEMWh: 0.5, SoCPU: 0.5})

	lengths := []float64{10, 5, 3, 4}
	for i, l := range net.Lines() {
		assert.Equal(t, l.From, network.BusID(i))
		assert.Equal(t, l.To, network.BusID(i+1))
		assert.Equal(t, l.LengthKm, lengths[i])
	}
}

func TestBuildUnknownBus(t *testing.T) {
	s := Microgrid()
	s.Loads[0].Bus = "Bus 9"

	_, err := Build(context.Background(), s, nil)
	var verr *network.ValidationError
	assert.Assert(t, errors.As(err, &verr))
	assert.Equal(t, verr.Entity, "load")
	assert.Check(t, is.Contains(err.Error(), `bus "Bus 9" does not exist`))
}

func TestBuildDuplicateBus(t *testing.T) {
	s := Microgrid()
	s.Buses = append(s.Buses, BusConfig{Name: "Bus 1", VnKV: 0.4})

	_, err := Build(context.Background(), s, nil)
	assert.ErrorContains(t, err, "duplicate bus name")
}

func TestBuildReadsLiveSoC(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "bms.toml"))
	assert.NilError(t, err)
	assert.Assert(t, s.Storages[0].SoCSource != nil)
	assert.Equal(t, s.Storages[0].SoCSource.Register.Address, uint16(30845))

	reader := &fakeSoC{soc: 0.82}
	net, err := Build(context.Background(), s, reader)
	assert.NilError(t, err)

	ess, _ := net.Storage(0)
	assert.Equal(t, ess.SoCPU, 0.82)
	assert.Equal(t, len(reader.srcs), 1)
	assert.Equal(t, reader.srcs[0].IPAddr, "192.168.10.20")
}

func TestBuildFallsBackToConfiguredSoC(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "bms.toml"))
	assert.NilError(t, err)

	net, err := Build(context.Background(), s, &fakeSoC{err: errors.New("i/o timeout")})
	assert.NilError(t, err)

	ess, _ := net.Storage(0)
	assert.Equal(t, ess.SoCPU, 0.5)
}
