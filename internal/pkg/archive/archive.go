/*
archive.go Persistence of solved studies. A Record is one run; Archivers store or forward
it. Handler ties an Archiver to a msg.Publisher so that every published result is kept.
*/

package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/cgc_powerflow/internal/pkg/msg"
	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
)

// Record is one solved study.
type Record struct {
	PID       uuid.UUID
	Name      string
	CreatedAt time.Time
	Network   network.Network
	Results   powerflow.Results
}

// NewRecord stamps a solved network with a fresh PID and the current time.
func NewRecord(net network.Network, res powerflow.Results) Record {
	return Record{
		PID:       uuid.New(),
		Name:      net.Name(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Network:   net,
		Results:   res,
	}
}

// Archiver stores or forwards a Record.
type Archiver interface {
	Archive(ctx context.Context, rec Record) error
}

// Document is the flat form of a Record used on the wire and in document stores.
type Document struct {
	PID          string    `json:"pid" bson:"pid"`
	Name         string    `json:"name" bson:"name"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	SolarGenMW   float64   `json:"solar_gen_mw" bson:"solar_gen_mw"`
	GridImportMW float64   `json:"grid_import_mw" bson:"grid_import_mw"`
	Buses        []BusDoc  `json:"buses" bson:"buses"`
	Lines        []LineDoc `json:"lines" bson:"lines"`
}

// BusDoc is a bus and its solved state.
type BusDoc struct {
	ID       int     `json:"id" bson:"id"`
	Name     string  `json:"name" bson:"name"`
	VnKV     float64 `json:"vn_kv" bson:"vn_kv"`
	VmPU     float64 `json:"vm_pu" bson:"vm_pu"`
	VaDegree float64 `json:"va_degree" bson:"va_degree"`
	PMW      float64 `json:"p_mw" bson:"p_mw"`
	QMvar    float64 `json:"q_mvar" bson:"q_mvar"`
}

// LineDoc is a line and its solved flow.
type LineDoc struct {
	ID             int     `json:"id" bson:"id"`
	Name           string  `json:"name" bson:"name"`
	FromBus        int     `json:"from_bus" bson:"from_bus"`
	ToBus          int     `json:"to_bus" bson:"to_bus"`
	PFromMW        float64 `json:"p_from_mw" bson:"p_from_mw"`
	PlMW           float64 `json:"pl_mw" bson:"pl_mw"`
	IKA            float64 `json:"i_ka" bson:"i_ka"`
	LoadingPercent float64 `json:"loading_percent" bson:"loading_percent"`
}

// Document flattens the record. Buses or lines without a result row are omitted.
func (r Record) Document() Document {
	d := Document{
		PID:          r.PID.String(),
		Name:         r.Name,
		CreatedAt:    r.CreatedAt,
		SolarGenMW:   r.Results.TotalGen(),
		GridImportMW: r.Results.TotalGrid(),
	}
	for i, b := range r.Network.Buses() {
		res, ok := r.Results.Bus[network.BusID(i)]
		if !ok {
			continue
		}
		d.Buses = append(d.Buses, BusDoc{
			ID:       i,
			Name:     b.Name,
			VnKV:     b.VnKV,
			VmPU:     res.VmPU,
			VaDegree: res.VaDegree,
			PMW:      res.PMW,
			QMvar:    res.QMvar,
		})
	}
	for i, l := range r.Network.Lines() {
		res, ok := r.Results.Line[network.LineID(i)]
		if !ok {
			continue
		}
		d.Lines = append(d.Lines, LineDoc{
			ID:             i,
			Name:           l.Name,
			FromBus:        int(l.From),
			ToBus:          int(l.To),
			PFromMW:        res.PFromMW,
			PlMW:           res.PlMW,
			IKA:            res.IKA,
			LoadingPercent: res.LoadingPercent,
		})
	}
	return d
}

// Multi archives to every archiver in turn and reports each failure.
type Multi []Archiver

// Archive implements Archiver. All archivers are attempted.
func (m Multi) Archive(ctx context.Context, rec Record) error {
	var failed []error
	for _, a := range m {
		if err := a.Archive(ctx, rec); err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("archive: %d of %d archivers failed: %w", len(failed), len(m), errors.Join(failed...))
	}
	return nil
}

// Handler archives every Record published on msg.Result.
type Handler struct {
	mux     *sync.Mutex
	pid     uuid.UUID
	inbox   <-chan msg.Msg
	target  Archiver
	timeout time.Duration
	stop    chan struct{}
	once    *sync.Once
	started bool
	done    chan struct{}
}

// NewHandler subscribes to system and forwards results to target.
func NewHandler(system msg.Publisher, target Archiver, timeout time.Duration) (*Handler, error) {
	pid := uuid.New()
	inbox, err := system.Subscribe(pid, msg.Result)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handler{
		mux:     &sync.Mutex{},
		pid:     pid,
		inbox:   inbox,
		target:  target,
		timeout: timeout,
		stop:    make(chan struct{}),
		once:    &sync.Once{},
		done:    make(chan struct{}),
	}, nil
}

// PID returns the handler's subscriber PID.
func (h *Handler) PID() uuid.UUID {
	return h.pid
}

// Process archives incoming records until Stop is called or the inbox closes.
func (h *Handler) Process() {
	h.mux.Lock()
	h.started = true
	h.mux.Unlock()

	log.Println("[Archive] Process Started")
	defer close(h.done)
loop:
	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				break loop
			}
			rec, ok := m.Payload().(Record)
			if !ok {
				log.Printf("[Archive] ignoring payload of type %T\n", m.Payload())
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
			if err := h.target.Archive(ctx, rec); err != nil {
				log.Printf("[Archive] run %v: %v\n", rec.PID, err)
			}
			cancel()
		case <-h.stop:
			break loop
		}
	}
	log.Println("[Archive] Process Shutdown")
}

// Stop ends Process and waits for it to return. It is safe to call more than once and
// before Process has started.
func (h *Handler) Stop() {
	h.once.Do(func() { close(h.stop) })

	h.mux.Lock()
	started := h.started
	h.mux.Unlock()
	if started {
		<-h.done
	}
}
