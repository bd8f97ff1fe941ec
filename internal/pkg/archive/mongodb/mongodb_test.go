package mongodb

import (
	"context"
	"testing"

	"github.com/ohowland/cgc_powerflow/internal/pkg/archive"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow/mocksolver"
	"github.com/ohowland/cgc_powerflow/internal/pkg/scenario"
	"go.mongodb.org/mongo-driver/bson"
	"gotest.tools/v3/assert"
)

func TestRunToBSON(t *testing.T) {
	net, err := scenario.Build(context.Background(), scenario.Microgrid(), nil)
	assert.NilError(t, err)
	res, err := powerflow.Run(context.Background(), &mocksolver.Solver{}, net)
	assert.NilError(t, err)
	rec := archive.NewRecord(net, res)

	d := runToBSON(rec)
	assert.Equal(t, d[0].Key, "_id")
	assert.Equal(t, d[0].Value, rec.PID.String())

	raw, err := bson.Marshal(d)
	assert.NilError(t, err)

	var back archive.Document
	assert.NilError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, back.Name, "Microgrid")
	assert.Equal(t, back.SolarGenMW, 3.0)
	assert.Equal(t, len(back.Buses), 5)
	assert.Equal(t, back.Lines[0].Name, "Line 1-2")
	assert.Assert(t, back.CreatedAt.Equal(rec.CreatedAt))
}

func TestOpenRequiresDatabase(t *testing.T) {
	_, err := Open(context.Background(), Config{URI: "mongodb://localhost:27017"})
	assert.ErrorContains(t, err, "uri and database are required")
}
