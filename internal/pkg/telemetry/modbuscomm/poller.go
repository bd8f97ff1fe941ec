package modbuscomm

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/goburrow/modbus"
)

// Source locates the state of charge register of a battery management system.
type Source struct {
	IPAddr       string   `json:"IPAddr" toml:"IPAddr"`
	Port         string   `json:"Port" toml:"Port"`
	SlaveID      byte     `json:"SlaveID" toml:"SlaveID"`
	Timeout      int      `json:"Timeout" toml:"Timeout"`
	Register     Register `json:"Register" toml:"Register"`
	EnableLogger bool     `json:"EnableLogger" toml:"EnableLogger"`
}

// Client is the subset of the goburrow client used by the poller.
type Client interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// Poller reads registers from a Modbus TCP target.
type Poller struct {
	handler *modbus.TCPClientHandler
	client  Client
}

// NewPoller is a factory for the Poller struct. Timeout is in milliseconds.
func NewPoller(src Source) Poller {
	handler := modbus.NewTCPClientHandler(src.IPAddr + ":" + src.Port)
	handler.Timeout = time.Millisecond * time.Duration(src.Timeout)
	handler.SlaveId = src.SlaveID

	if src.EnableLogger {
		handler.Logger = log.New(os.Stdout, "modbus: ", log.LstdFlags)
	}

	return Poller{
		handler: handler,
		client:  modbus.NewClient(handler),
	}
}

// Read connects, reads each register and disconnects. Registers that fail are left out
// of the map and the last error is returned.
func (m Poller) Read(registers []Register) (map[string]float64, error) {
	if m.handler != nil {
		if err := m.handler.Connect(); err != nil {
			return nil, err
		}
		defer m.handler.Close()
	}
	return readAll(m.client, registers)
}

func readAll(client Client, registers []Register) (map[string]float64, error) {
	var err error
	readValues := make(map[string]float64)
	for _, register := range registers {
		resp, readErr := client.ReadHoldingRegisters(register.Address, sizeOf(register.DataType))
		if readErr != nil {
			err = readErr
			continue
		}
		v, decodeErr := decode(resp, register)
		if decodeErr != nil {
			err = decodeErr
			continue
		}
		readValues[register.Name] = v
	}
	return readValues, err
}

// SoCReader reads per-unit state of charge from a BMS over Modbus TCP.
type SoCReader struct{}

// ReadSoC reads the source register once. The value is clamped to [0, 1]; NaN and
// infinite readings are errors.
func (SoCReader) ReadSoC(ctx context.Context, src Source) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return readSoC(NewPoller(src), src.Register)
}

func readSoC(p Poller, register Register) (float64, error) {
	values, err := p.Read([]Register{register})
	if err != nil {
		return 0, fmt.Errorf("modbuscomm: read soc: %w", err)
	}
	soc, ok := values[register.Name]
	if !ok {
		return 0, fmt.Errorf("modbuscomm: register %q not read", register.Name)
	}
	if math.IsNaN(soc) || math.IsInf(soc, 0) {
		return 0, fmt.Errorf("modbuscomm: register %q: soc is not a finite number: %v", register.Name, soc)
	}
	return math.Max(0, math.Min(1, soc)), nil
}
