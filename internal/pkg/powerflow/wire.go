package powerflow

import (
	"fmt"

	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
)

// Request is the network description sent to an external solver process.
// Tables are keyed by the network's ids so results can be mapped back.
type Request struct {
	Name    string       `json:"name"`
	FHz     float64      `json:"f_hz"`
	Bus     []BusRow     `json:"bus"`
	ExtGrid []ExtGridRow `json:"ext_grid"`
	Load    []LoadRow    `json:"load"`
	Sgen    []SgenRow    `json:"sgen"`
	Storage []StorageRow `json:"storage"`
	Line    []LineRow    `json:"line"`
}

// BusRow describes one bus.
type BusRow struct {
	ID   network.BusID `json:"id"`
	Name string        `json:"name"`
	VnKV float64       `json:"vn_kv"`
}

// ExtGridRow describes one slack connection.
type ExtGridRow struct {
	ID       network.GridID `json:"id"`
	Name     string         `json:"name"`
	Bus      network.BusID  `json:"bus"`
	VmPU     float64        `json:"vm_pu"`
	VaDegree float64        `json:"va_degree"`
}

// LoadRow describes one load.
type LoadRow struct {
	ID    network.LoadID `json:"id"`
	Name  string         `json:"name"`
	Bus   network.BusID  `json:"bus"`
	PMW   float64        `json:"p_mw"`
	QMvar float64        `json:"q_mvar"`
}

// SgenRow describes one static generator.
type SgenRow struct {
	ID    network.GenID `json:"id"`
	Name  string        `json:"name"`
	Bus   network.BusID `json:"bus"`
	PMW   float64       `json:"p_mw"`
	QMvar float64       `json:"q_mvar"`
	Type  string        `json:"type"`
}

// StorageRow describes one storage unit.
type StorageRow struct {
	ID         network.StorageID `json:"id"`
	Name       string            `json:"name"`
	Bus        network.BusID     `json:"bus"`
	PMW        float64           `json:"p_mw"`
	MaxEMWh    float64           `json:"max_e_mwh"`
	MinEMWh    float64           `json:"min_e_mwh"`
	SoCPercent float64           `json:"soc_percent"`
}

// LineRow describes one line.
type LineRow struct {
	ID        network.LineID `json:"id"`
	Name      string         `json:"name"`
	FromBus   network.BusID  `json:"from_bus"`
	ToBus     network.BusID  `json:"to_bus"`
	LengthKm  float64        `json:"length_km"`
	ROhmPerKm float64        `json:"r_ohm_per_km"`
	XOhmPerKm float64        `json:"x_ohm_per_km"`
	CNfPerKm  float64        `json:"c_nf_per_km"`
	MaxIKA    float64        `json:"max_i_ka"`
}

// NewRequest flattens a network into solver tables.
func NewRequest(net network.Network) Request {
	req := Request{Name: net.Name(), FHz: net.FHz()}
	for i, b := range net.Buses() {
		req.Bus = append(req.Bus, BusRow{network.BusID(i), b.Name, b.VnKV})
	}
	for i, g := range net.ExternalGrids() {
		req.ExtGrid = append(req.ExtGrid, ExtGridRow{network.GridID(i), g.Name, g.Bus, g.VmPU, g.VaDegree})
	}
	for i, l := range net.Loads() {
		req.Load = append(req.Load, LoadRow{network.LoadID(i), l.Name, l.Bus, l.PMW, l.QMvar})
	}
	for i, g := range net.StaticGenerators() {
		kind := g.Kind
		if kind == "" {
			kind = network.DefaultKind
		}
		req.Sgen = append(req.Sgen, SgenRow{network.GenID(i), g.Name, g.Bus, g.PMW, g.QMvar, kind})
	}
	for i, s := range net.Storages() {
		req.Storage = append(req.Storage, StorageRow{network.StorageID(i), s.Name, s.Bus, s.PMW,
			s.MaxEMWh, s.MinEMWh, s.SoCPU * 100})
	}
	for i, l := range net.Lines() {
		req.Line = append(req.Line, LineRow{network.LineID(i), l.Name, l.From, l.To, l.LengthKm,
			l.ROhmPerKm, l.XOhmPerKm, l.CNfPerKm, l.MaxIKA})
	}
	return req
}

// Response is the result document returned by an external solver process.
type Response struct {
	Converged  bool          `json:"converged"`
	Message    string        `json:"message,omitempty"`
	ResBus     []ResBusRow   `json:"res_bus"`
	ResLine    []ResLineRow  `json:"res_line"`
	ResLoad    []ResPowerRow `json:"res_load"`
	ResSgen    []ResPowerRow `json:"res_sgen"`
	ResStorage []ResPowerRow `json:"res_storage"`
	ResExtGrid []ResPowerRow `json:"res_ext_grid"`
}

// ResBusRow is one row of the bus result table.
type ResBusRow struct {
	ID int `json:"id"`
	BusResult
}

// ResLineRow is one row of the line result table.
type ResLineRow struct {
	ID int `json:"id"`
	LineResult
}

// ResPowerRow is one row of a load, sgen, storage or ext_grid result table.
type ResPowerRow struct {
	ID int `json:"id"`
	Injection
}

// Results converts the response into an overlay. A non-converged response yields a
// DivergenceError, duplicate rows are rejected.
func (r Response) Results() (Results, error) {
	if !r.Converged {
		return Results{}, &DivergenceError{Message: r.Message}
	}

	res := NewResults()
	for _, row := range r.ResBus {
		id := network.BusID(row.ID)
		if _, dup := res.Bus[id]; dup {
			return Results{}, duplicate("res_bus", row.ID)
		}
		res.Bus[id] = row.BusResult
	}
	for _, row := range r.ResLine {
		id := network.LineID(row.ID)
		if _, dup := res.Line[id]; dup {
			return Results{}, duplicate("res_line", row.ID)
		}
		res.Line[id] = row.LineResult
	}
	if err := injections("res_load", r.ResLoad, res.Load); err != nil {
		return Results{}, err
	}
	if err := injections("res_sgen", r.ResSgen, res.Gen); err != nil {
		return Results{}, err
	}
	if err := injections("res_storage", r.ResStorage, res.Storage); err != nil {
		return Results{}, err
	}
	if err := injections("res_ext_grid", r.ResExtGrid, res.Grid); err != nil {
		return Results{}, err
	}
	return res, nil
}

func injections[K ~int](table string, rows []ResPowerRow, into map[K]Injection) error {
	for _, row := range rows {
		id := K(row.ID)
		if _, dup := into[id]; dup {
			return duplicate(table, row.ID)
		}
		into[id] = row.Injection
	}
	return nil
}

func duplicate(table string, id int) error {
	return fmt.Errorf("powerflow: duplicate %s row for id %d", table, id)
}
