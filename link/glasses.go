package link

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/openglasses/gazed/params"
	"github.com/openglasses/gazed/types/gaze"
	"github.com/tidwall/gjson"
)

// Glasses is the Link implementation for the physical device.
//
// Session management goes over the REST API; live data arrives as JSON
// datagrams on UDP after a subscription request, which must be renewed
// periodically or the device stops sending.
type Glasses struct {
	Config *params.LinkConfig

	logger *slog.Logger
	client *http.Client
	box    *mailbox

	mu        sync.Mutex
	streaming bool
	conn      *net.UDPConn
	stop      chan struct{}
	waiting   sync.WaitGroup

	// key identifies this subscriber to the device.
	key string
}

func NewGlasses(config *params.LinkConfig) *Glasses {
	if config == nil {
		config = params.DefaultLinkConfig
	}
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return &Glasses{
		Config: config,
		logger: slog.With("d", "link"),
		client: &http.Client{Timeout: 10 * time.Second},
		box:    newMailbox(config.SampleTTL, config.DedupeCacheSize),
		key:    hex.EncodeToString(buf),
	}
}

func (g *Glasses) apiURL(path string) string {
	return fmt.Sprintf("http://%s:%d%s", g.Config.Address, g.Config.APIPort, path)
}

func (g *Glasses) postJSON(ctx context.Context, path string, body any) (gjson.Result, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL(path), rd)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, err
	}
	if resp.StatusCode >= 300 {
		return gjson.Result{}, fmt.Errorf("%w: POST %s: %s", ErrRequestRejected, path, resp.Status)
	}
	return gjson.ParseBytes(data), nil
}

func (g *Glasses) getJSON(ctx context.Context, path string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL(path), nil)
	if err != nil {
		return gjson.Result{}, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, err
	}
	if resp.StatusCode >= 300 {
		return gjson.Result{}, fmt.Errorf("%w: GET %s: %s", ErrRequestRejected, path, resp.Status)
	}
	return gjson.ParseBytes(data), nil
}

func (g *Glasses) IsStreaming() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.streaming
}

// StartStreaming opens the UDP socket, subscribes to the live-data stream,
// and begins filing datagrams into the mailbox. The subscription is renewed
// on an interval until StopStreaming.
func (g *Glasses) StartStreaming(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.streaming {
		return nil
	}
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", g.Config.Address, g.Config.UDPPort))
	if err != nil {
		return err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return err
	}
	g.conn = conn
	g.stop = make(chan struct{})
	g.streaming = true

	g.waiting.Add(2)
	go g.readLoop(conn)
	go g.keepAliveLoop(conn)

	g.logger.Info("Live data streaming started", "addr", addr.String(), "key", g.key)
	return nil
}

func (g *Glasses) readLoop(conn *net.UDPConn) {
	defer g.waiting.Done()
	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			select {
			case <-g.stop:
				return
			default:
				g.logger.Error("Live data read failed", "error", err)
				return
			}
		}
		g.box.consume(buf[:n])
	}
}

func (g *Glasses) keepAliveLoop(conn *net.UDPConn) {
	defer g.waiting.Done()
	msg := []byte(fmt.Sprintf(`{"type": "live.data.unicast", "key": "%s", "op": "start"}`, g.key))
	ticker := time.NewTicker(g.Config.KeepAliveInterval)
	defer ticker.Stop()
	for {
		if _, err := conn.Write(msg); err != nil {
			g.logger.Warn("Keepalive write failed", "error", err)
		}
		select {
		case <-g.stop:
			return
		case <-ticker.C:
		}
	}
}

// StopStreaming tears the live-data subscription down. Idempotent.
func (g *Glasses) StopStreaming() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.streaming {
		return nil
	}
	close(g.stop)
	err := g.conn.Close()
	g.waiting.Wait()
	g.streaming = false
	g.logger.Info("Live data streaming stopped")
	return err
}

func (g *Glasses) LatestGazePoint() gaze.GazePoint {
	if v, ok := g.box.get(slotGP); ok {
		return v.(gaze.GazePoint)
	}
	return gaze.SentinelGazePoint()
}

func (g *Glasses) LatestGazePoint3D() gaze.GazePoint3D {
	if v, ok := g.box.get(slotGP3); ok {
		return v.(gaze.GazePoint3D)
	}
	return gaze.SentinelGazePoint3D()
}

func (g *Glasses) eyePosition(pcSlot, pdSlot string) gaze.EyePosition3D {
	v, ok := g.box.get(pcSlot)
	if !ok {
		return gaze.SentinelEyePosition3D()
	}
	pos := v.(gaze.EyePosition3D)
	// Pupil diameter rides along when it belongs to the same gaze event.
	if pd, ok := g.box.get(pdSlot); ok {
		if e := pd.(pdEntry); e.Gidx == pos.Gidx {
			pos.PD = e.PD
		}
	}
	return pos
}

// LatestEyePosition returns the newest pupil-center sample for one eye, or
// for EyeBinocular the average of the two eyes when both report the same
// gaze event. Eyes looking at different events yield a sentinel.
func (g *Glasses) LatestEyePosition(eye gaze.Eye) gaze.EyePosition3D {
	switch eye {
	case gaze.EyeLeft:
		return g.eyePosition(slotPCLeft, slotPDLeft)
	case gaze.EyeRight:
		return g.eyePosition(slotPCRight, slotPDRight)
	}

	left := g.eyePosition(slotPCLeft, slotPDLeft)
	right := g.eyePosition(slotPCRight, slotPDRight)
	if !gaze.IsValid(left) || !gaze.IsValid(right) {
		return gaze.SentinelEyePosition3D()
	}
	if left.Gidx != right.Gidx {
		// Eye positions from different events.
		return gaze.SentinelEyePosition3D()
	}
	return gaze.EyePosition3D{
		PC: gaze.Vec3{
			(left.PC[0] + right.PC[0]) / 2,
			(left.PC[1] + right.PC[1]) / 2,
			(left.PC[2] + right.PC[2]) / 2,
		},
		PD:   (left.PD + right.PD) / 2,
		TS:   (left.TS + right.TS) / 2,
		Gidx: left.Gidx,
	}
}

func (g *Glasses) LatestPupil(eye gaze.Eye) (pd float64, ts int64, gidx int64) {
	slot := slotPDLeft
	if eye == gaze.EyeRight {
		slot = slotPDRight
	}
	if v, ok := g.box.get(slot); ok {
		e := v.(pdEntry)
		return e.PD, e.TS, e.Gidx
	}
	return -1, -1, -1
}

func (g *Glasses) LatestMEMS() gaze.MEMS {
	m := gaze.SentinelMEMS()
	found := false
	if v, ok := g.box.get(slotAC); ok {
		e := v.(memsEntry)
		m.AC, m.TS = e.V, e.TS
		found = true
	}
	if v, ok := g.box.get(slotGY); ok {
		e := v.(memsEntry)
		m.GY, m.TS = e.V, e.TS
		found = true
	}
	if !found {
		return gaze.SentinelMEMS()
	}
	return m
}

func (g *Glasses) eyeSnapshot(pcSlot, pdSlot, gdSlot string) EyeSnapshot {
	snap := EyeSnapshot{}
	if v, ok := g.box.get(pcSlot); ok {
		pc := v.(gaze.EyePosition3D).PC
		snap.PC = &pc
	}
	if v, ok := g.box.get(pdSlot); ok {
		pd := v.(pdEntry).PD
		snap.PD = &pd
	}
	if v, ok := g.box.get(gdSlot); ok {
		gd := v.(gdEntry).GD
		snap.GD = &gd
	}
	return snap
}

func (g *Glasses) Snapshot() Snapshot {
	snap := Snapshot{}
	if v, ok := g.box.get(slotAC); ok {
		ac := v.(memsEntry).V
		snap.AC = &ac
	}
	if v, ok := g.box.get(slotGY); ok {
		gy := v.(memsEntry).V
		snap.GY = &gy
	}
	if v, ok := g.box.get(slotGP); ok {
		gp := v.(gaze.GazePoint).GP
		snap.GP = &gp
	}
	if v, ok := g.box.get(slotGP3); ok {
		gp3 := v.(gaze.GazePoint3D).GP3
		snap.GP3 = &gp3
	}
	snap.Left = g.eyeSnapshot(slotPCLeft, slotPDLeft, slotGDLeft)
	snap.Right = g.eyeSnapshot(slotPCRight, slotPDRight, slotGDRight)
	return snap
}

func (g *Glasses) CreateProject(ctx context.Context, name string) (string, error) {
	body := map[string]any{}
	if name != "" {
		body["pr_info"] = map[string]any{"Name": name}
	}
	res, err := g.postJSON(ctx, "/api/projects", body)
	if err != nil {
		return "", err
	}
	return res.Get("pr_id").String(), nil
}

func (g *Glasses) CreateParticipant(ctx context.Context, projectID, name string) (string, error) {
	body := map[string]any{"pa_project": projectID}
	if name != "" {
		body["pa_info"] = map[string]any{"Name": name}
	}
	res, err := g.postJSON(ctx, "/api/participants", body)
	if err != nil {
		return "", err
	}
	return res.Get("pa_id").String(), nil
}

func (g *Glasses) CreateCalibration(ctx context.Context, projectID, participantID string) (string, error) {
	body := map[string]any{
		"ca_project":     projectID,
		"ca_participant": participantID,
		"ca_type":        "default",
	}
	res, err := g.postJSON(ctx, "/api/calibrations", body)
	if err != nil {
		return "", err
	}
	return res.Get("ca_id").String(), nil
}

func (g *Glasses) StartCalibration(ctx context.Context, calibrationID string) error {
	_, err := g.postJSON(ctx, "/api/calibrations/"+calibrationID+"/start", nil)
	return err
}

// WaitUntilCalibrated polls the calibration state until the device reports
// success or failure.
func (g *Glasses) WaitUntilCalibrated(ctx context.Context, calibrationID string) (bool, error) {
	for {
		res, err := g.getJSON(ctx, "/api/calibrations/"+calibrationID+"/status")
		if err != nil {
			return false, err
		}
		switch res.Get("ca_state").String() {
		case "calibrated":
			return true, nil
		case "failed", "uncalibrated":
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(g.Config.StatusPollInterval):
		}
	}
}

func (g *Glasses) CreateRecording(ctx context.Context, participantID string) (string, error) {
	res, err := g.postJSON(ctx, "/api/recordings", map[string]any{"rec_participant": participantID})
	if err != nil {
		return "", err
	}
	return res.Get("rec_id").String(), nil
}

func (g *Glasses) StartRecording(ctx context.Context, recordingID string) error {
	_, err := g.postJSON(ctx, "/api/recordings/"+recordingID+"/start", nil)
	return err
}

func (g *Glasses) StopRecording(ctx context.Context, recordingID string) error {
	_, err := g.postJSON(ctx, "/api/recordings/"+recordingID+"/stop", nil)
	return err
}

func (g *Glasses) WaitUntilRecordingDone(ctx context.Context, recordingID string) error {
	for {
		res, err := g.getJSON(ctx, "/api/recordings/"+recordingID+"/status")
		if err != nil {
			return err
		}
		if s := res.Get("rec_state").String(); s == "done" || s == "stopped" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.Config.StatusPollInterval):
		}
	}
}

func (g *Glasses) WaitUntilStatusOK(ctx context.Context) (bool, error) {
	for {
		res, err := g.getJSON(ctx, "/api/system/status")
		if err == nil {
			switch res.Get("sys_status").String() {
			case "ok":
				return true, nil
			case "error":
				return false, nil
			}
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(g.Config.StatusPollInterval):
		}
	}
}
