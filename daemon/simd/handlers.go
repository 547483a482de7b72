package simd

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"
)

// calibrationHold is how long a started calibration reports "calibrating"
// before flipping to "calibrated". Long enough that pollers see the
// intermediate state at least once.
const calibrationHold = 500 * time.Millisecond

type calibration struct {
	participant string
	startedAt   time.Time
}

type recording struct {
	participant string
	state       string // "init", "recording", "stopped"
}

// registry is the simulator's session store. The real device persists
// projects and recordings to its SD card; we keep them for the process
// lifetime only.
type registry struct {
	mu sync.Mutex

	seq          int
	projects     map[string]bool
	participants map[string]string // id -> project
	calibrations map[string]*calibration
	recordings   map[string]*recording
}

func newRegistry() *registry {
	return &registry{
		projects:     make(map[string]bool),
		participants: make(map[string]string),
		calibrations: make(map[string]*calibration),
		recordings:   make(map[string]*recording),
	}
}

func (r *registry) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%06d", prefix, r.seq)
}

func readBody(r *http.Request) gjson.Result {
	if r.Body == nil {
		return gjson.Result{}
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return gjson.Result{}
	}
	return gjson.ParseBytes(data)
}

func (s *SimDaemon) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	s.reg.mu.Lock()
	id := s.reg.nextID("pr")
	s.reg.projects[id] = true
	s.reg.mu.Unlock()

	s.logger.Info("Project created", "pr_id", id)
	writeJSON(w, map[string]any{"pr_id": id, "pr_created": time.Now().Format(time.RFC3339)})
}

func (s *SimDaemon) handleCreateParticipant(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	project := body.Get("pa_project").String()

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	if !s.reg.projects[project] {
		http.Error(w, "unknown project", http.StatusBadRequest)
		return
	}
	id := s.reg.nextID("pa")
	s.reg.participants[id] = project

	s.logger.Info("Participant created", "pa_id", id, "pr_id", project)
	writeJSON(w, map[string]any{"pa_id": id, "pa_project": project})
}

func (s *SimDaemon) handleCreateCalibration(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	participant := body.Get("ca_participant").String()

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	if _, ok := s.reg.participants[participant]; !ok {
		http.Error(w, "unknown participant", http.StatusBadRequest)
		return
	}
	id := s.reg.nextID("ca")
	s.reg.calibrations[id] = &calibration{participant: participant}

	s.logger.Info("Calibration created", "ca_id", id, "pa_id", participant)
	writeJSON(w, map[string]any{"ca_id": id, "ca_state": "init"})
}

func (s *SimDaemon) handleStartCalibration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	ca, ok := s.reg.calibrations[id]
	if !ok {
		http.Error(w, "unknown calibration", http.StatusNotFound)
		return
	}
	ca.startedAt = time.Now()

	s.logger.Info("Calibration started", "ca_id", id)
	writeJSON(w, map[string]any{"ca_id": id, "ca_state": "calibrating"})
}

func (s *SimDaemon) handleCalibrationStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	ca, ok := s.reg.calibrations[id]
	if !ok {
		http.Error(w, "unknown calibration", http.StatusNotFound)
		return
	}
	state := "init"
	switch {
	case ca.startedAt.IsZero():
	case time.Since(ca.startedAt) < calibrationHold:
		state = "calibrating"
	default:
		state = "calibrated"
	}
	writeJSON(w, map[string]any{"ca_id": id, "ca_state": state})
}

func (s *SimDaemon) handleCreateRecording(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	participant := body.Get("rec_participant").String()

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	if _, ok := s.reg.participants[participant]; !ok {
		http.Error(w, "unknown participant", http.StatusBadRequest)
		return
	}
	id := s.reg.nextID("rec")
	s.reg.recordings[id] = &recording{participant: participant, state: "init"}

	s.logger.Info("Recording created", "rec_id", id, "pa_id", participant)
	writeJSON(w, map[string]any{"rec_id": id, "rec_state": "init"})
}

func (s *SimDaemon) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	rec, ok := s.reg.recordings[id]
	if !ok {
		http.Error(w, "unknown recording", http.StatusNotFound)
		return
	}
	if rec.state == "stopped" {
		http.Error(w, "recording already stopped", http.StatusConflict)
		return
	}
	rec.state = "recording"

	s.logger.Info("Recording started", "rec_id", id)
	writeJSON(w, map[string]any{"rec_id": id, "rec_state": rec.state})
}

func (s *SimDaemon) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	rec, ok := s.reg.recordings[id]
	if !ok {
		http.Error(w, "unknown recording", http.StatusNotFound)
		return
	}
	rec.state = "stopped"

	s.logger.Info("Recording stopped", "rec_id", id)
	writeJSON(w, map[string]any{"rec_id": id, "rec_state": rec.state})
}

func (s *SimDaemon) handleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	rec, ok := s.reg.recordings[id]
	if !ok {
		http.Error(w, "unknown recording", http.StatusNotFound)
		return
	}
	state := rec.state
	if state == "stopped" {
		// The device reports the post-processing result here.
		state = "done"
	}
	writeJSON(w, map[string]any{"rec_id": id, "rec_state": state})
}
