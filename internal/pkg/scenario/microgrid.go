package scenario

import "fmt"

// Microgrid returns the built-in five bus study: a radial 20 kV feeder with a grid
// connection, a load, a PV plant and a battery.
func Microgrid() Scenario {
	s := Scenario{Name: "Microgrid"}
	for i := 1; i <= 5; i++ {
		s.Buses = append(s.Buses, BusConfig{Name: fmt.Sprintf("Bus %d", i), VnKV: 20.0})
	}

	s.ExtGrids = []ExtGridConfig{{Name: "Grid Connection", Bus: "Bus 1", VmPU: 1.0}}
	s.Loads = []LoadConfig{{Name: "Load", Bus: "Bus 3", PMW: 2.0}}
	s.StaticGenerators = []SgenConfig{{Name: "Solar Generator", Bus: "Bus 2", PMW: 3.0, Kind: "PV"}}
	s.Storages = []StorageConfig{{
		Name:    "Battery Storage",
		Bus:     "Bus 4",
		PMW:     1.0,
		MaxEMWh: 5.0,
		MinEMWh: 0.5,
		SoCPU:   0.5,
	}}

	lengths := []float64{10.0, 5.0, 3.0, 4.0}
	for i, km := range lengths {
		s.Lines = append(s.Lines, LineConfig{
			Name:      fmt.Sprintf("Line %d-%d", i+1, i+2),
			From:      fmt.Sprintf("Bus %d", i+1),
			To:        fmt.Sprintf("Bus %d", i+2),
			LengthKm:  km,
			ROhmPerKm: 0.05,
			XOhmPerKm: 0.1,
			CNfPerKm:  100,
			MaxIKA:    10.0,
		})
	}
	return s
}
