package link

import (
	"fmt"

	"github.com/golang/groupcache/lru"
	"github.com/jellydator/ttlcache/v3"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/openglasses/gazed/events"
	"github.com/openglasses/gazed/types/gaze"
	"github.com/paulmach/orb"
	"github.com/tidwall/gjson"
	"time"
)

// Keys of the single-slot mailboxes, one per data channel.
const (
	slotGP      = "gp"
	slotGP3     = "gp3"
	slotPCLeft  = "pc.left"
	slotPCRight = "pc.right"
	slotPDLeft  = "pd.left"
	slotPDRight = "pd.right"
	slotGDLeft  = "gd.left"
	slotGDRight = "gd.right"
	slotAC      = "mems.ac"
	slotGY      = "mems.gy"
)

type pdEntry struct {
	PD   float64
	TS   int64
	Gidx int64
}

type gdEntry struct {
	GD   gaze.Vec3
	TS   int64
	Gidx int64
}

type memsEntry struct {
	V  [3]float64
	TS int64
}

// mailbox keeps the latest sample per channel. Each write replaces the
// whole value under the cache's lock, so readers only ever observe complete
// samples. Entries expire after the sample TTL: yesterday's gaze point is
// no-data, not evidence.
type mailbox struct {
	cache  *ttlcache.Cache[string, any]
	dedupe *lru.Cache
}

func newMailbox(ttl time.Duration, dedupeSize int) *mailbox {
	return &mailbox{
		cache: ttlcache.New[string, any](
			ttlcache.WithTTL[string, any](ttl)),
		dedupe: lru.New(dedupeSize),
	}
}

func (m *mailbox) put(slot string, v any) {
	m.cache.Set(slot, v, ttlcache.DefaultTTL)
}

func (m *mailbox) get(slot string) (any, bool) {
	item := m.cache.Get(slot)
	if item == nil || item.IsExpired() {
		return nil, false
	}
	return item.Value(), true
}

// seen returns true if an identical datagram was already consumed.
// The device re-broadcasts packets on subscription renewal.
func (m *mailbox) seen(slot string, v any) bool {
	hash, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		return false
	}
	key := fmt.Sprintf("%s/%d", slot, hash)
	if _, ok := m.dedupe.Get(key); ok {
		return true
	}
	m.dedupe.Add(key, true)
	return false
}

func vec3(r gjson.Result) gaze.Vec3 {
	a := r.Array()
	v := gaze.Vec3{}
	for i := 0; i < len(a) && i < 3; i++ {
		v[i] = a[i].Float()
	}
	return v
}

func arr3(r gjson.Result) [3]float64 {
	a := r.Array()
	v := [3]float64{}
	for i := 0; i < len(a) && i < 3; i++ {
		v[i] = a[i].Float()
	}
	return v
}

// consume parses one live-data datagram and files it in its slot.
// Datagrams are JSON objects keyed by payload: gp, gp3, pc, pd, gd
// (the last three per-eye), and ac/gy from the head unit MEMS.
// A non-zero "s" field flags a sample the device itself distrusts.
func (m *mailbox) consume(datagram []byte) {
	raw := string(datagram)
	if !gjson.Valid(raw) {
		return
	}
	if gjson.Get(raw, "s").Int() != 0 {
		return
	}
	ts := gjson.Get(raw, "ts").Int()
	gidx := gjson.Get(raw, "gidx").Int()

	eyeSlot := func(base string) (string, bool) {
		switch gjson.Get(raw, "eye").String() {
		case "left":
			return base + ".left", true
		case "right":
			return base + ".right", true
		}
		return "", false
	}

	switch {
	case gjson.Get(raw, "gp").Exists():
		a := gjson.Get(raw, "gp").Array()
		if len(a) < 2 {
			return
		}
		v := gaze.GazePoint{GP: orb.Point{a[0].Float(), a[1].Float()}, TS: ts, Gidx: gidx}
		if !m.seen(slotGP, v) {
			m.put(slotGP, v)
			if gaze.IsValid(v) {
				events.GazeSampleFeed.Send(v)
			}
		}
	case gjson.Get(raw, "gp3").Exists():
		v := gaze.GazePoint3D{GP3: vec3(gjson.Get(raw, "gp3")), TS: ts, Gidx: gidx}
		if !m.seen(slotGP3, v) {
			m.put(slotGP3, v)
		}
	case gjson.Get(raw, "pc").Exists():
		slot, ok := eyeSlot("pc")
		if !ok {
			return
		}
		v := gaze.EyePosition3D{PC: vec3(gjson.Get(raw, "pc")), TS: ts, Gidx: gidx}
		if !m.seen(slot, v) {
			m.put(slot, v)
		}
	case gjson.Get(raw, "pd").Exists():
		slot, ok := eyeSlot("pd")
		if !ok {
			return
		}
		v := pdEntry{PD: gjson.Get(raw, "pd").Float(), TS: ts, Gidx: gidx}
		if !m.seen(slot, v) {
			m.put(slot, v)
		}
	case gjson.Get(raw, "gd").Exists():
		slot, ok := eyeSlot("gd")
		if !ok {
			return
		}
		v := gdEntry{GD: vec3(gjson.Get(raw, "gd")), TS: ts, Gidx: gidx}
		if !m.seen(slot, v) {
			m.put(slot, v)
		}
	case gjson.Get(raw, "ac").Exists():
		m.put(slotAC, memsEntry{V: arr3(gjson.Get(raw, "ac")), TS: ts})
	case gjson.Get(raw, "gy").Exists():
		m.put(slotGY, memsEntry{V: arr3(gjson.Get(raw, "gy")), TS: ts})
	}
}
