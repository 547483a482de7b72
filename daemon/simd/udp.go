package simd

import (
	"net"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// subscriberTTL is how long a subscription lives without a keepalive.
// Clients renew about once a second.
const subscriberTTL = 5 * time.Second

// serveUDP starts the live-data side of the simulator: a UDP socket that
// accepts subscription requests and streams synthetic gaze datagrams back
// to each subscriber until their keepalives stop. The returned func tears
// the socket and the broadcast loop down.
func (s *SimDaemon) serveUDP() (stop func(), err error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: s.Config.UDPPort})
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	subs := map[string]struct {
		addr *net.UDPAddr
		seen time.Time
	}{}

	done := make(chan struct{})
	var waiting sync.WaitGroup

	waiting.Add(1)
	go func() {
		defer waiting.Done()
		buf := make([]byte, 1024)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				select {
				case <-done:
					return
				default:
					s.logger.Error("Subscription read failed", "error", err)
					return
				}
			}
			raw := string(buf[:n])
			if gjson.Get(raw, "type").String() != "live.data.unicast" {
				continue
			}
			mu.Lock()
			switch gjson.Get(raw, "op").String() {
			case "start":
				if _, ok := subs[addr.String()]; !ok {
					s.logger.Info("Subscriber joined", "addr", addr.String(), "key", gjson.Get(raw, "key").String())
				}
				subs[addr.String()] = struct {
					addr *net.UDPAddr
					seen time.Time
				}{addr, time.Now()}
			case "stop":
				delete(subs, addr.String())
				s.logger.Info("Subscriber left", "addr", addr.String())
			}
			mu.Unlock()
		}
	}()

	waiting.Add(1)
	go func() {
		defer waiting.Done()
		ticker := time.NewTicker(s.Config.SampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}

			batch := s.sig.next(s.Config.SampleInterval)

			mu.Lock()
			for key, sub := range subs {
				if time.Since(sub.seen) > subscriberTTL {
					delete(subs, key)
					s.logger.Info("Subscriber expired", "addr", key)
					continue
				}
				for _, d := range batch {
					if _, err := conn.WriteToUDP(d, sub.addr); err != nil {
						s.logger.Warn("Datagram write failed", "addr", key, "error", err)
					}
				}
			}
			mu.Unlock()

			for _, d := range batch {
				s.feedDatagrams.Send(d)
			}
		}
	}()

	return func() {
		close(done)
		_ = conn.Close()
		waiting.Wait()
	}, nil
}
