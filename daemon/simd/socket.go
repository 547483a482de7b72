package simd

import (
	"log"
	"log/slog"

	"github.com/olahol/melody"
)

// initMelody sets up the websocket handler. Connected clients receive
// every live-data datagram the simulator emits, so a browser can watch
// the synthetic gaze stream without speaking UDP.
func (s *SimDaemon) initMelody() {
	s.melodyInstance = melody.New()

	s.melodyInstance.HandleConnect(func(sess *melody.Session) {
		log.Println("[websocket] connected", sess.Request.RemoteAddr)
	})

	// Incoming messages from clients are logged and dropped.
	s.melodyInstance.HandleMessage(func(sess *melody.Session, msg []byte) {
		log.Println("[websocket] message", string(msg))
	})

	s.melodyInstance.HandleDisconnect(func(sess *melody.Session) {
		log.Println("[websocket] disconnected", sess.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(sess *melody.Session, e error) {
		log.Println("[websocket] error", e, sess.Request.RemoteAddr)
	})

	// Mirror the UDP stream, as sent. Websocket watchers get the raw
	// datagrams; validity filtering is the consumer's job.
	datagrams := make(chan []byte)
	sub := s.feedDatagrams.Subscribe(datagrams)
	go func() {
		for {
			select {
			case d := <-datagrams:
				if err := s.melodyInstance.Broadcast(d); err != nil {
					slog.Warn("Failed to broadcast datagram", "error", err)
				}
			case err := <-sub.Err():
				slog.Error("Failed to subscribe to datagram feed", "error", err)
				return
			}
		}
	}()
}
