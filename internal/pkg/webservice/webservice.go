/*
webservice.go HTTP front end for a study. Serves the network, the latest results and the
topology artifact, re-solves on request and pushes the network and every run to websocket
clients.
*/

package webservice

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/ohowland/cgc_powerflow/internal/pkg/archive"
	"github.com/ohowland/cgc_powerflow/internal/pkg/msg"
	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
	"github.com/ohowland/cgc_powerflow/internal/pkg/study"
)

const contentType = "application/json; charset=UTF-8"

// NetworkView is the JSON form of a network.
type NetworkView struct {
	PID              uuid.UUID                 `json:"PID"`
	Name             string                    `json:"Name"`
	FHz              float64                   `json:"FHz"`
	Buses            []network.Bus             `json:"Buses"`
	ExtGrids         []network.ExternalGrid    `json:"ExtGrids"`
	Loads            []network.Load            `json:"Loads"`
	StaticGenerators []network.StaticGenerator `json:"StaticGenerators"`
	Storages         []network.Storage         `json:"Storages"`
	Lines            []network.Line            `json:"Lines"`
}

func viewOf(net network.Network) NetworkView {
	return NetworkView{
		PID:              net.PID(),
		Name:             net.Name(),
		FHz:              net.FHz(),
		Buses:            net.Buses(),
		ExtGrids:         net.ExternalGrids(),
		Loads:            net.Loads(),
		StaticGenerators: net.StaticGenerators(),
		Storages:         net.Storages(),
		Lines:            net.Lines(),
	}
}

// Event is one websocket message. Topic is "network" with a NetworkView or "result" with
// an archive.Document.
type Event struct {
	Topic string      `json:"Topic"`
	Data  interface{} `json:"Data"`
}

func eventOf(m msg.Msg) (Event, bool) {
	switch p := m.Payload().(type) {
	case NetworkView:
		return Event{Topic: m.Topic().String(), Data: p}, true
	case archive.Record:
		return Event{Topic: m.Topic().String(), Data: p.Document()}, true
	default:
		return Event{}, false
	}
}

// Server owns the network under study and its latest outcome.
type Server struct {
	mux      *sync.RWMutex
	runMux   *sync.Mutex
	study    study.Study
	net      network.Network
	last     study.Outcome
	solved   bool
	pub      *msg.PubSub
	upgrader websocket.Upgrader
	router   *mux.Router
}

// New returns a Server for net. The network under study is published on pub under
// msg.Network before each run and the run under msg.Result after it.
func New(st study.Study, net network.Network, pub *msg.PubSub) *Server {
	s := &Server{
		mux:    &sync.RWMutex{},
		runMux: &sync.Mutex{},
		study:  st,
		net:    net,
		pub:    pub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.router = s.makeRouter()
	return s
}

func (s *Server) makeRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/network", s.networkHandler).Methods("GET")
	r.HandleFunc("/api/results", s.resultsHandler).Methods("GET")
	r.HandleFunc("/api/bus/{id}", s.busHandler).Methods("GET")
	r.HandleFunc("/api/run", s.runHandler).Methods("POST")
	r.HandleFunc("/topology", s.topologyHandler).Methods("GET")
	r.HandleFunc("/ws", s.wsHandler)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run solves the network, keeps the outcome and publishes it.
func (s *Server) Run(ctx context.Context) (study.Outcome, error) {
	s.runMux.Lock()
	defer s.runMux.Unlock()

	s.pub.Publish(msg.Network, viewOf(s.net))
	o, err := s.study.Run(ctx, s.net)
	if err != nil {
		return study.Outcome{}, err
	}

	s.mux.Lock()
	s.last, s.solved = o, true
	s.mux.Unlock()

	n := s.pub.Publish(msg.Result, o.Record)
	log.Printf("[Webservice] run %v published to %d subscribers\n", o.Record.PID, n)
	return o, nil
}

func (s *Server) latest() (study.Outcome, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.last, s.solved
}

func (s *Server) networkHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.net))
}

func (s *Server) resultsHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := s.latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no results yet")
		return
	}
	writeJSON(w, http.StatusOK, o.Record.Document())
}

func (s *Server) busHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed bus id")
		return
	}
	bus, ok := s.net.Bus(network.BusID(id))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown bus")
		return
	}

	doc := archive.BusDoc{ID: id, Name: bus.Name, VnKV: bus.VnKV}
	if o, solved := s.latest(); solved {
		if res, ok := o.Results().Bus[network.BusID(id)]; ok {
			doc.VmPU, doc.VaDegree, doc.PMW, doc.QMvar = res.VmPU, res.VaDegree, res.PMW, res.QMvar
		}
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	o, err := s.Run(r.Context())
	var verr *network.ValidationError
	var derr *powerflow.DivergenceError
	switch {
	case errors.As(err, &verr), errors.As(err, &derr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		log.Println("[Webservice] run failed:", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, o.Record.Document())
}

func (s *Server) topologyHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := s.latest()
	if !ok || o.Artifact.Path == "" {
		writeError(w, http.StatusNotFound, "no topology artifact")
		return
	}
	http.ServeFile(w, r, o.Artifact.Path)
}

// wsHandler streams published networks and runs to the client as Events.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	pid := uuid.New()
	defer s.pub.Unsubscribe(pid)
	nets, err := s.pub.Subscribe(pid, msg.Network)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	runs, err := s.pub.Subscribe(pid, msg.Result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Webservice] websocket upgrade:", err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		var m msg.Msg
		var ok bool
		select {
		case m, ok = <-nets:
		case m, ok = <-runs:
		case <-done:
			return
		}
		if !ok {
			return
		}
		ev, ok := eventOf(m)
		if !ok {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Println("[Webservice] malformed JSON:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	w.Write(body)
}

func writeError(w http.ResponseWriter, code int, text string) {
	writeJSON(w, code, struct {
		Error string `json:"Error"`
	}{text})
}
