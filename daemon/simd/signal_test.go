package simd

import (
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestSignalDatagrams(t *testing.T) {
	sig := newSignal()
	batch := sig.next(20 * time.Millisecond)

	// gp, gp3, 3 channels per eye, ac, gy.
	if len(batch) != 10 {
		t.Fatalf("batch size: got %d, want 10", len(batch))
	}

	for _, dgram := range batch {
		parsed := gjson.ParseBytes(dgram)
		if !parsed.IsObject() {
			t.Fatalf("not a JSON object: %s", dgram)
		}
		if parsed.Get("ts").Int() != 20 {
			t.Errorf("ts: got %d, want 20: %s", parsed.Get("ts").Int(), dgram)
		}
		if parsed.Get("gidx").Int() != 1 {
			t.Errorf("gidx: got %d, want 1: %s", parsed.Get("gidx").Int(), dgram)
		}
		if parsed.Get("s").Int() != 0 {
			t.Errorf("flagged datagram: %s", dgram)
		}
	}

	gp := gjson.GetBytes(batch[0], "gp").Array()
	if len(gp) != 2 {
		t.Fatalf("gp arity: %s", batch[0])
	}
	// First sample is a jittered fixation around screen center.
	for _, v := range gp {
		if v.Float() < 0.4 || v.Float() > 0.6 {
			t.Errorf("gp out of the starting fixation: %s", batch[0])
		}
	}
	if z := gjson.GetBytes(batch[1], "gp3").Array()[2].Float(); z != 1500 {
		t.Errorf("gp3 depth: got %v, want 1500", z)
	}
}

func TestSignalAdvances(t *testing.T) {
	sig := newSignal()
	var lastTS, lastGidx int64
	for i := 0; i < 100; i++ {
		batch := sig.next(20 * time.Millisecond)
		ts := gjson.GetBytes(batch[0], "ts").Int()
		gidx := gjson.GetBytes(batch[0], "gidx").Int()
		if ts <= lastTS || gidx <= lastGidx {
			t.Fatalf("stalled at sample %d: ts %d gidx %d", i, ts, gidx)
		}
		lastTS, lastGidx = ts, gidx
	}
}

// Over a couple of seconds the scanpath must leave its first fixation.
func TestSignalSaccades(t *testing.T) {
	sig := newSignal()
	moved := false
	for i := 0; i < 150; i++ {
		batch := sig.next(20 * time.Millisecond)
		gp := gjson.GetBytes(batch[0], "gp").Array()
		if dx, dy := gp[0].Float()-0.5, gp[1].Float()-0.5; dx*dx+dy*dy > 0.01 {
			moved = true
			break
		}
	}
	if !moved {
		t.Error("gaze never left the initial fixation")
	}
}
