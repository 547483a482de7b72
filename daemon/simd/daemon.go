package simd

import (
	"encoding/json"
	"log"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	"github.com/olahol/melody"
	"github.com/openglasses/gazed/params"
)

// SimDaemon imitates the glasses on the wire: the session REST API on
// HTTP and the live-data JSON datagram stream on UDP. It exists so the
// client, the detectors, and experiment scripts can run against a fake
// device on localhost.
type SimDaemon struct {
	Config *params.SimDaemonConfig

	logger         *slog.Logger
	melodyInstance *melody.Melody
	feedDatagrams  event.FeedOf[[]byte]

	reg *registry
	sig *signal
}

func NewSimDaemon(config *params.SimDaemonConfig) *SimDaemon {
	if config == nil {
		config = params.DefaultSimDaemonConfig()
	}
	return &SimDaemon{
		Config: config,

		logger:        slog.With("d", "sim"),
		feedDatagrams: event.FeedOf[[]byte]{},
		reg:           newRegistry(),
		sig:           newSignal(),
	}
}

// Run starts the UDP broadcaster and the HTTP server (ListenAndServe),
// returning any server error.
func (s *SimDaemon) Run() error {
	stopUDP, err := s.serveUDP()
	if err != nil {
		return err
	}
	defer stopUDP()

	router := s.NewRouter()
	http.Handle("/", router)
	log.Printf("Starting glasses simulator on %s (udp :%d)", s.Config.ListenAddr, s.Config.UDPPort)
	return http.ListenAndServe(s.Config.ListenAddr, nil)
}

func (s *SimDaemon) NewRouter() *mux.Router {

	// Handle websocket.
	s.initMelody()
	http.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})

	router := mux.NewRouter().StrictSlash(false)
	router.Use(loggingMiddleware)

	apiRoutes := router.NewRoute().Subrouter()
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))

	apiJSONRoutes.Path("/api/system/status").HandlerFunc(s.handleSystemStatus).Methods(http.MethodGet)

	apiJSONRoutes.Path("/api/projects").HandlerFunc(s.handleCreateProject).Methods(http.MethodPost)
	apiJSONRoutes.Path("/api/participants").HandlerFunc(s.handleCreateParticipant).Methods(http.MethodPost)

	apiJSONRoutes.Path("/api/calibrations").HandlerFunc(s.handleCreateCalibration).Methods(http.MethodPost)
	apiJSONRoutes.Path("/api/calibrations/{id}/start").HandlerFunc(s.handleStartCalibration).Methods(http.MethodPost)
	apiJSONRoutes.Path("/api/calibrations/{id}/status").HandlerFunc(s.handleCalibrationStatus).Methods(http.MethodGet)

	apiJSONRoutes.Path("/api/recordings").HandlerFunc(s.handleCreateRecording).Methods(http.MethodPost)
	apiJSONRoutes.Path("/api/recordings/{id}/start").HandlerFunc(s.handleStartRecording).Methods(http.MethodPost)
	apiJSONRoutes.Path("/api/recordings/{id}/stop").HandlerFunc(s.handleStopRecording).Methods(http.MethodPost)
	apiJSONRoutes.Path("/api/recordings/{id}/status").HandlerFunc(s.handleRecordingStatus).Methods(http.MethodGet)

	return router
}

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *SimDaemon) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"sys_status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
