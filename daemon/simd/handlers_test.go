package simd

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"
)

func TestPing(t *testing.T) {
	req := httptest.NewRequest("GET", "http://glasses.local/ping", nil)
	w := httptest.NewRecorder()
	pingPong(w, req)
	resp := w.Result()
	if resp.StatusCode != 200 {
		t.Fatalf("status code not 200")
	}
}

func TestSystemStatus(t *testing.T) {
	s := NewSimDaemon(nil)
	req := httptest.NewRequest("GET", "http://glasses.local/api/system/status", nil)
	w := httptest.NewRecorder()
	s.handleSystemStatus(w, req)

	body := w.Body.String()
	if gjson.Get(body, "sys_status").String() != "ok" {
		t.Errorf("body: %s", body)
	}
}

// Walks the whole session surface the way the driver does: project,
// participant, calibration, recording.
func TestSessionFlow(t *testing.T) {
	s := NewSimDaemon(nil)

	w := httptest.NewRecorder()
	s.handleCreateProject(w, httptest.NewRequest("POST", "/api/projects", nil))
	project := gjson.Get(w.Body.String(), "pr_id").String()
	if project == "" {
		t.Fatalf("no pr_id: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	s.handleCreateParticipant(w, httptest.NewRequest("POST", "/api/participants",
		strings.NewReader(`{"pa_project": "`+project+`"}`)))
	participant := gjson.Get(w.Body.String(), "pa_id").String()
	if participant == "" {
		t.Fatalf("no pa_id: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	s.handleCreateCalibration(w, httptest.NewRequest("POST", "/api/calibrations",
		strings.NewReader(`{"ca_project": "`+project+`", "ca_participant": "`+participant+`", "ca_type": "default"}`)))
	calibration := gjson.Get(w.Body.String(), "ca_id").String()
	if calibration == "" {
		t.Fatalf("no ca_id: %s", w.Body.String())
	}

	// Unstarted calibration reports init.
	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/calibrations/"+calibration+"/status", nil)
	req = mux.SetURLVars(req, map[string]string{"id": calibration}) // hack
	s.handleCalibrationStatus(w, req)
	if st := gjson.Get(w.Body.String(), "ca_state").String(); st != "init" {
		t.Errorf("ca_state: got %q, want init", st)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/calibrations/"+calibration+"/start", nil)
	req = mux.SetURLVars(req, map[string]string{"id": calibration})
	s.handleStartCalibration(w, req)

	// Before the hold elapses: calibrating. After: calibrated.
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/calibrations/"+calibration+"/status", nil)
	req = mux.SetURLVars(req, map[string]string{"id": calibration})
	s.handleCalibrationStatus(w, req)
	if st := gjson.Get(w.Body.String(), "ca_state").String(); st != "calibrating" {
		t.Errorf("ca_state: got %q, want calibrating", st)
	}

	s.reg.mu.Lock()
	s.reg.calibrations[calibration].startedAt = time.Now().Add(-2 * calibrationHold)
	s.reg.mu.Unlock()

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/calibrations/"+calibration+"/status", nil)
	req = mux.SetURLVars(req, map[string]string{"id": calibration})
	s.handleCalibrationStatus(w, req)
	if st := gjson.Get(w.Body.String(), "ca_state").String(); st != "calibrated" {
		t.Errorf("ca_state: got %q, want calibrated", st)
	}

	w = httptest.NewRecorder()
	s.handleCreateRecording(w, httptest.NewRequest("POST", "/api/recordings",
		strings.NewReader(`{"rec_participant": "`+participant+`"}`)))
	recording := gjson.Get(w.Body.String(), "rec_id").String()
	if recording == "" {
		t.Fatalf("no rec_id: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/recordings/"+recording+"/start", nil)
	req = mux.SetURLVars(req, map[string]string{"id": recording})
	s.handleStartRecording(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("start recording: %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/recordings/"+recording+"/stop", nil)
	req = mux.SetURLVars(req, map[string]string{"id": recording})
	s.handleStopRecording(w, req)

	// A stopped recording reports done, the post-processing result the
	// driver polls for.
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/recordings/"+recording+"/status", nil)
	req = mux.SetURLVars(req, map[string]string{"id": recording})
	s.handleRecordingStatus(w, req)
	if st := gjson.Get(w.Body.String(), "rec_state").String(); st != "done" {
		t.Errorf("rec_state: got %q, want done", st)
	}
}

func TestCreateParticipant_UnknownProject(t *testing.T) {
	s := NewSimDaemon(nil)
	w := httptest.NewRecorder()
	s.handleCreateParticipant(w, httptest.NewRequest("POST", "/api/participants",
		strings.NewReader(`{"pa_project": "pr-nope"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestRecordingStatus_Unknown(t *testing.T) {
	s := NewSimDaemon(nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/recordings/rec-nope/status", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "rec-nope"})
	s.handleRecordingStatus(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}
