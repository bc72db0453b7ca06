package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/sharka/internal/dispatch"
	"github.com/example/sharka/internal/earnings"
	"github.com/example/sharka/internal/fare"
	"github.com/example/sharka/internal/geo"
	"github.com/example/sharka/internal/geocode"
	"github.com/example/sharka/internal/ingest"
	"github.com/example/sharka/internal/lifecycle"
	"github.com/example/sharka/internal/models"
	"github.com/example/sharka/internal/rides"
	"github.com/example/sharka/internal/wallet"
)

// Deps are the collaborators the API server routes requests to.
type Deps struct {
	Rides    *rides.Coordinator
	Geo      geo.Index
	Geocoder *geocode.Client
	Router   *geocode.Router
	Kafka    *ingest.KafkaProducer
	WSReg    *dispatch.WSRegistry
	Wallet   *wallet.Service
	Earnings *earnings.Service
}

type Server struct {
	deps   Deps
	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(logger *slog.Logger, deps Deps) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{deps: deps, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/rides/estimate", s.handleEstimate).Methods("POST")
	api.HandleFunc("/vehicles", s.handleVehicles).Methods("GET")

	api.HandleFunc("/rides", s.handleBookRide).Methods("POST")
	api.HandleFunc("/rides/{id}", s.handleRideSnapshot).Methods("GET")
	api.HandleFunc("/rides/{id}/confirm", s.passengerAction(func(p *lifecycle.PassengerSession, _ string) error { return p.Confirm() })).Methods("POST")
	api.HandleFunc("/rides/{id}/cancel", s.passengerAction(func(p *lifecycle.PassengerSession, _ string) error { return p.Cancel() })).Methods("POST")
	api.HandleFunc("/rides/{id}/skip", s.passengerAction(func(p *lifecycle.PassengerSession, _ string) error { return p.Skip() })).Methods("POST")
	api.HandleFunc("/rides/{id}/co-passengers/{pid}/approve", s.passengerAction(func(p *lifecycle.PassengerSession, pid string) error { return p.Approve(pid) })).Methods("POST")
	api.HandleFunc("/rides/{id}/co-passengers/{pid}/reject", s.passengerAction(func(p *lifecycle.PassengerSession, pid string) error { return p.Reject(pid) })).Methods("POST")

	api.HandleFunc("/drivers/{id}/online", s.driverAction(func(d *lifecycle.DispatchSession, _ string) error { return d.GoOnline() })).Methods("POST")
	api.HandleFunc("/drivers/{id}/offline", s.driverAction(func(d *lifecycle.DispatchSession, _ string) error { return d.GoOffline() })).Methods("POST")
	api.HandleFunc("/drivers/{id}/accept", s.driverAction(func(d *lifecycle.DispatchSession, _ string) error { return d.Accept() })).Methods("POST")
	api.HandleFunc("/drivers/{id}/decline", s.driverAction(func(d *lifecycle.DispatchSession, _ string) error { return d.Decline() })).Methods("POST")
	api.HandleFunc("/drivers/{id}/arrived", s.driverAction(func(d *lifecycle.DispatchSession, _ string) error { return d.Arrived() })).Methods("POST")
	api.HandleFunc("/drivers/{id}/start", s.driverAction(func(d *lifecycle.DispatchSession, _ string) error { return d.StartRide() })).Methods("POST")
	api.HandleFunc("/drivers/{id}/complete", s.driverAction(func(d *lifecycle.DispatchSession, _ string) error { return d.Complete() })).Methods("POST")
	api.HandleFunc("/drivers/{id}/shares/{sid}/approve", s.driverAction(func(d *lifecycle.DispatchSession, sid string) error { return d.ApproveShare(sid) })).Methods("POST")
	api.HandleFunc("/drivers/{id}/shares/{sid}/reject", s.driverAction(func(d *lifecycle.DispatchSession, sid string) error { return d.RejectShare(sid) })).Methods("POST")
	api.HandleFunc("/drivers/{id}/session", s.handleDriverSnapshot).Methods("GET")
	api.HandleFunc("/drivers/{id}/earnings", s.handleEarnings).Methods("GET")

	api.HandleFunc("/wallets/{userID}", s.handleWallet).Methods("GET")
	api.HandleFunc("/wallets/{userID}/convert", s.handleWalletConvert).Methods("POST")

	api.HandleFunc("/geocode/search", s.handleGeocodeSearch).Methods("GET")
	api.HandleFunc("/geocode/reverse", s.handleGeocodeReverse).Methods("GET")
	api.HandleFunc("/route", s.handleRoute).Methods("GET")

	s.mux.HandleFunc("/internal/driver/locations", s.handleDriverLocation).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{kind}/{id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type estimateRequest struct {
	Pickup      models.Location    `json:"pickup"`
	Dropoff     models.Location    `json:"dropoff"`
	VehicleType models.VehicleType `json:"vehicle_type"`
	Sharing     bool               `json:"sharing"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	est := fare.Estimate(req.Pickup, req.Dropoff, fare.ClassFor(req.VehicleType), req.Sharing)
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, fare.Classes)
}

type bookRequest struct {
	RiderID         string             `json:"rider_id"`
	Pickup          models.Location    `json:"pickup"`
	Dropoff         models.Location    `json:"dropoff"`
	VehicleType     models.VehicleType `json:"vehicle_type"`
	Sharing         bool               `json:"sharing"`
	MaxCoPassengers int                `json:"max_co_passengers"`
}

func (s *Server) handleBookRide(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.RiderID == "" {
		req.RiderID = "anonymous"
	}
	sess, err := s.deps.Rides.BookRide(req.RiderID, req.Pickup, req.Dropoff, req.VehicleType, req.Sharing, req.MaxCoPassengers)
	if err != nil {
		if errors.Is(err, rides.ErrMissingLocations) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleRideSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Rides.Passenger(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// passengerAction adapts a session transition into a handler. The second
// argument is the {pid} path variable for co-passenger decisions.
func (s *Server) passengerAction(fn func(*lifecycle.PassengerSession, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		sess, err := s.deps.Rides.Passenger(vars["id"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err := fn(sess, vars["pid"]); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func (s *Server) driverAction(fn func(*lifecycle.DispatchSession, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		sess := s.deps.Rides.Driver(vars["id"])
		if err := fn(sess, vars["sid"]); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func (s *Server) handleDriverSnapshot(w http.ResponseWriter, r *http.Request) {
	sess := s.deps.Rides.Driver(mux.Vars(r)["id"])
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "today"
	}
	sum, err := s.deps.Earnings.Summarize(mux.Vars(r)["id"], period)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Wallet.Summary(mux.Vars(r)["userID"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleWalletConvert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credits int64 `json:"credits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Credits <= 0 {
		http.Error(w, "credits must be > 0", http.StatusBadRequest)
		return
	}
	if err := s.deps.Wallet.Convert(mux.Vars(r)["userID"], req.Credits); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	sum, err := s.deps.Wallet.Summary(mux.Vars(r)["userID"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleGeocodeSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}
	locs, err := s.deps.Geocoder.Search(r.Context(), q, 5)
	if err != nil {
		// degrade to empty results; the search box shows "no matches"
		locs = nil
	}
	writeJSON(w, http.StatusOK, locs)
}

func (s *Server) handleGeocodeReverse(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		http.Error(w, "lat and lon are required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Geocoder.Reverse(r.Context(), lat, lon))
}

// handleRoute draws the pickup→dropoff polyline. from/to are
// "lat,lon" pairs.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	from, errFrom := parseLatLon(r.URL.Query().Get("from"))
	to, errTo := parseLatLon(r.URL.Query().Get("to"))
	if errFrom != nil || errTo != nil {
		http.Error(w, "from and to must be lat,lon pairs", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Router.Between(r.Context(), from, to))
}

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	var d models.Driver
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if d.ID == "" {
		http.Error(w, "driver id is required", http.StatusBadRequest)
		return
	}
	d.Online = true
	if s.deps.Kafka != nil {
		if err := s.deps.Kafka.PublishLocation(d); err != nil {
			s.logger.Warn("publish driver location", "driver_id", d.ID, "error", err)
		}
	}
	if s.deps.Geo != nil {
		s.deps.Geo.Upsert(d)
	}
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	switch lifecycle.SessionKind(vars["kind"]) {
	case lifecycle.KindPassenger, lifecycle.KindDriver:
	default:
		http.Error(w, "unknown connection kind", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.deps.WSReg.Add(id, conn)
	// reads are discarded; the socket only carries server pushes. EOF or
	// error drops the registration.
	go func() {
		defer func() {
			s.deps.WSReg.Remove(id)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func parseLatLon(v string) (models.Location, error) {
	parts := strings.SplitN(v, ",", 2)
	if len(parts) != 2 {
		return models.Location{}, errors.New("want lat,lon")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.Location{}, err
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.Location{}, err
	}
	return models.Location{Lat: lat, Lon: lon}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
