package report

import (
	"bytes"
	"context"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow/mocksolver"
	"github.com/ohowland/cgc_powerflow/internal/pkg/scenario"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func solvedMicrogrid(t *testing.T) (network.Network, powerflow.Results) {
	t.Helper()
	net, err := scenario.Build(context.Background(), scenario.Microgrid(), nil)
	assert.NilError(t, err)
	res, err := powerflow.Run(context.Background(), &mocksolver.Solver{}, net)
	assert.NilError(t, err)
	return net, res
}

func TestRound(t *testing.T) {
	assert.Equal(t, Round(1.23456, 4), 1.2346)
	assert.Equal(t, Round(12.345, 2), 12.35)
	assert.Equal(t, Round(-0.00001, 4), 0.0)
	assert.Assert(t, !math.Signbit(Round(-0.00001, 4)))
	assert.Assert(t, math.IsNaN(Round(math.NaN(), 2)))
}

func TestFormatIsIdempotent(t *testing.T) {
	values := []float64{0.99871234, 1.0, 1.00005, 0.9512345, 12.3456, 99.995, -3.14159, 0}
	for _, places := range []int{VoltagePlaces, LoadingPlaces} {
		for _, v := range values {
			once := Format(v, places)
			parsed, err := strconv.ParseFloat(once, 64)
			assert.NilError(t, err)
			assert.Equal(t, Format(parsed, places), once, "value %v at %d places", v, places)
			assert.Equal(t, Round(Round(v, places), places), Round(v, places))
		}
	}
}

func TestWriteNetwork(t *testing.T) {
	net, _ := solvedMicrogrid(t)
	var buf bytes.Buffer
	assert.NilError(t, WriteNetwork(&buf, net))

	out := buf.String()
	assert.Check(t, strings.HasPrefix(out, "Network created successfully!\n"))
	assert.Check(t, is.Contains(out, "   - bus (5 elements)"))
	assert.Check(t, is.Contains(out, "   - line (4 elements)"))
}

func TestWriteResults(t *testing.T) {
	net, res := solvedMicrogrid(t)
	var buf bytes.Buffer
	assert.NilError(t, WriteResults(&buf, net, res))

	out := buf.String()
	assert.Check(t, strings.HasPrefix(out, "Power flow results:\n"))
	for _, title := range []string{"res_bus", "res_line", "res_load", "res_sgen", "res_storage", "res_ext_grid"} {
		assert.Check(t, is.Contains(out, "\n"+title+"\n"))
	}
	assert.Check(t, is.Contains(out, "Solar Generator"))
	assert.Check(t, is.Contains(out, "3.000000"))
}

func TestWriteSummary(t *testing.T) {
	net, res := solvedMicrogrid(t)
	var buf bytes.Buffer
	assert.NilError(t, WriteSummary(&buf, net, res))

	want := `
Power Flow Summary:
--------------------------------------------------
Bus Voltages (p.u.):
0    1.0000
1    0.9990
2    0.9980
3    0.9970
4    0.9960

Line Loading (%):
0    10.00
1    11.00
2    12.00
3    13.00

Generation (MW):
Solar Generation: 3.00 MW
Grid Import: 0.00 MW
`
	assert.Equal(t, buf.String(), want)
}

func TestSummaryStableOnRoundedInput(t *testing.T) {
	net, res := solvedMicrogrid(t)
	res.Bus[2] = powerflow.BusResult{VmPU: 0.99876543}
	res.Line[1] = powerflow.LineResult{LoadingPercent: 45.678901}

	var first bytes.Buffer
	assert.NilError(t, WriteSummary(&first, net, res))

	res.Bus[2] = powerflow.BusResult{VmPU: Round(0.99876543, VoltagePlaces)}
	res.Line[1] = powerflow.LineResult{LoadingPercent: Round(45.678901, LoadingPlaces)}
	var second bytes.Buffer
	assert.NilError(t, WriteSummary(&second, net, res))

	assert.Equal(t, first.String(), second.String())
	assert.Check(t, is.Contains(first.String(), "2    0.9988\n"))
	assert.Check(t, is.Contains(first.String(), "1    45.68\n"))
}

func TestMissingRowsPrintNaN(t *testing.T) {
	net, res := solvedMicrogrid(t)
	delete(res.Load, 0)

	table := Tables(net, res)[2]
	assert.Equal(t, table.Title, "res_load")
	assert.DeepEqual(t, table.Rows[0], []string{"0", "Load", "NaN", "NaN"})
}
