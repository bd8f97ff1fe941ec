/*
report.go Console report of a solved network. Section labels and rounding are stable so
that output can be compared between runs.
*/

package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
)

// Decimal places used by the summary.
const (
	VoltagePlaces = 4
	LoadingPlaces = 2
	PowerPlaces   = 2
	tablePlaces   = 6
)

const missing = "NaN"

// Round rounds v to the given number of decimal places. Negative zero is returned as zero.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow10(places)
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}

// Format rounds v and prints it with exactly the given number of decimals.
func Format(v float64, places int) string {
	return strconv.FormatFloat(Round(v, places), 'f', places, 64)
}

// Table is a titled block of rows with a header.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Write prints the table as aligned columns.
func (t Table) Write(w io.Writer) error {
	if _, err := fmt.Fprintln(w, t.Title); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Header, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// WriteNetwork prints the creation banner and network summary.
func WriteNetwork(w io.Writer, net network.Network) error {
	_, err := fmt.Fprintf(w, "Network created successfully!\n%s\n", net.Summary())
	return err
}

// WriteResults prints every result table under the "Power flow results:" label.
func WriteResults(w io.Writer, net network.Network, res powerflow.Results) error {
	if _, err := fmt.Fprintln(w, "Power flow results:"); err != nil {
		return err
	}
	for _, t := range Tables(net, res) {
		if err := t.Write(w); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary prints the rounded voltage, loading and generation summary.
func WriteSummary(w io.Writer, net network.Network, res powerflow.Results) error {
	var sb strings.Builder
	sb.WriteString("\nPower Flow Summary:\n")
	sb.WriteString(strings.Repeat("-", 50) + "\n")

	sb.WriteString("Bus Voltages (p.u.):\n")
	for i := range net.Buses() {
		v := missing
		if r, ok := res.Bus[network.BusID(i)]; ok {
			v = Format(r.VmPU, VoltagePlaces)
		}
		fmt.Fprintf(&sb, "%-4d %s\n", i, v)
	}

	sb.WriteString("\nLine Loading (%):\n")
	for i := range net.Lines() {
		v := missing
		if r, ok := res.Line[network.LineID(i)]; ok {
			v = Format(r.LoadingPercent, LoadingPlaces)
		}
		fmt.Fprintf(&sb, "%-4d %s\n", i, v)
	}

	sb.WriteString("\nGeneration (MW):\n")
	fmt.Fprintf(&sb, "Solar Generation: %s MW\n", Format(res.TotalGen(), PowerPlaces))
	fmt.Fprintf(&sb, "Grid Import: %s MW\n", Format(res.TotalGrid(), PowerPlaces))

	_, err := io.WriteString(w, sb.String())
	return err
}

// Tables builds the result tables in solver table order.
func Tables(net network.Network, res powerflow.Results) []Table {
	return []Table{
		BusTable(net, res),
		LineTable(net, res),
		injectionTable("res_load", names(net.Loads(), func(l network.Load) string { return l.Name }),
			func(i int) (powerflow.Injection, bool) { r, ok := res.Load[network.LoadID(i)]; return r, ok }),
		injectionTable("res_sgen", names(net.StaticGenerators(), func(g network.StaticGenerator) string { return g.Name }),
			func(i int) (powerflow.Injection, bool) { r, ok := res.Gen[network.GenID(i)]; return r, ok }),
		injectionTable("res_storage", names(net.Storages(), func(s network.Storage) string { return s.Name }),
			func(i int) (powerflow.Injection, bool) { r, ok := res.Storage[network.StorageID(i)]; return r, ok }),
		injectionTable("res_ext_grid", names(net.ExternalGrids(), func(g network.ExternalGrid) string { return g.Name }),
			func(i int) (powerflow.Injection, bool) { r, ok := res.Grid[network.GridID(i)]; return r, ok }),
	}
}

// BusTable is the res_bus table.
func BusTable(net network.Network, res powerflow.Results) Table {
	t := Table{Title: "res_bus", Header: []string{"", "name", "vm_pu", "va_degree", "p_mw", "q_mvar"}}
	for i, b := range net.Buses() {
		r, ok := res.Bus[network.BusID(i)]
		row := []string{strconv.Itoa(i), b.Name}
		t.Rows = append(t.Rows, append(row, values(ok, r.VmPU, r.VaDegree, r.PMW, r.QMvar)...))
	}
	return t
}

// LineTable is the res_line table.
func LineTable(net network.Network, res powerflow.Results) Table {
	t := Table{Title: "res_line", Header: []string{"", "name", "p_from_mw", "q_from_mvar", "p_to_mw",
		"q_to_mvar", "pl_mw", "ql_mvar", "i_ka", "loading_percent"}}
	for i, l := range net.Lines() {
		r, ok := res.Line[network.LineID(i)]
		row := []string{strconv.Itoa(i), l.Name}
		t.Rows = append(t.Rows, append(row, values(ok, r.PFromMW, r.QFromMvar, r.PToMW, r.QToMvar,
			r.PlMW, r.QlMvar, r.IKA, r.LoadingPercent)...))
	}
	return t
}

func injectionTable(title string, names []string, lookup func(int) (powerflow.Injection, bool)) Table {
	t := Table{Title: title, Header: []string{"", "name", "p_mw", "q_mvar"}}
	for i, name := range names {
		r, ok := lookup(i)
		row := []string{strconv.Itoa(i), name}
		t.Rows = append(t.Rows, append(row, values(ok, r.PMW, r.QMvar)...))
	}
	return t
}

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = name(item)
	}
	return out
}

func values(ok bool, vs ...float64) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		if !ok {
			out[i] = missing
			continue
		}
		out[i] = Format(v, tablePlaces)
	}
	return out
}
