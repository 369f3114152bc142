package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"vector-store/config"
	"vector-store/db"
	"vector-store/store"
	"vector-store/vecmath"
)

const (
	wsReadTimeout = 60 * time.Second
	maxBodyBytes  = 32 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

/*
Server represents the API server
*/
type Server struct {
	manager       *db.Manager
	persistence   *db.PersistenceManager
	defaultMetric vecmath.Metric
	log           logrus.FieldLogger
	mux           *http.ServeMux
	httpServer    *http.Server
}

/*
Option configures a Server
*/
type Option func(*Server)

/*
WithPersistence removes a collection's files when the collection is deleted through the API
*/
func WithPersistence(p *db.PersistenceManager) Option {
	return func(s *Server) { s.persistence = p }
}

/*
WithDefaultMetric sets the metric used by compare requests that don't name one
*/
func WithDefaultMetric(m vecmath.Metric) Option {
	return func(s *Server) { s.defaultMetric = m }
}

/*
WithLogger sets the request logger
*/
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

/*
NewServer creates a new API server
*/
func NewServer(manager *db.Manager, opts ...Option) *Server {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Server{
		manager:       manager,
		defaultMetric: vecmath.MetricCosine,
		log:           discard,
		mux:           http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/collections", s.handleListCollections)
	s.mux.HandleFunc("POST /api/collections", s.handleCreateCollection)
	s.mux.HandleFunc("GET /api/collections/{name}", s.handleGetCollection)
	s.mux.HandleFunc("DELETE /api/collections/{name}", s.handleDeleteCollection)

	s.mux.HandleFunc("GET /api/collections/{name}/records", s.handleListRecords)
	s.mux.HandleFunc("POST /api/collections/{name}/records", s.handleAddRecord)
	s.mux.HandleFunc("DELETE /api/collections/{name}/records", s.handleClearRecords)
	s.mux.HandleFunc("GET /api/collections/{name}/records/{id}", s.handleGetRecord)
	s.mux.HandleFunc("PATCH /api/collections/{name}/records/{id}", s.handleUpdateRecord)
	s.mux.HandleFunc("DELETE /api/collections/{name}/records/{id}", s.handleDeleteRecord)

	s.mux.HandleFunc("POST /api/compare", s.handleCompare)
	s.mux.HandleFunc("GET /api/ws", s.handleWebSocket)
}

/*
Handler returns the HTTP handler serving every route
*/
func (s *Server) Handler() http.Handler {
	return s.mux
}

/*
Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
*/
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

/*
Shutdown gracefully stops a server started with Start
*/
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v before writing the header so an encoding failure still yields a 500 body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrCollectionExists):
		return http.StatusConflict
	case errors.Is(err, store.ErrDimensionMismatch),
		errors.Is(err, store.ErrInvalidDimension),
		errors.Is(err, db.ErrInvalidCollectionName),
		errors.Is(err, vecmath.ErrUnknownMetric),
		errors.Is(err, errNonFinite),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var (
	errBadRequest     = errors.New("invalid request body")
	errRecordNotFound = errors.New("record not found")
	errRecordExists   = errors.New("record already exists")
	errNonFinite      = errors.New("result is not a finite number")
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

// HTTP handlers

func (s *Server) handleListCollections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.ListCollections())
}

type createCollectionRequest struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := s.manager.CreateCollection(req.Name, config.CollectionConfig{Dimension: req.Dimension})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c.Info())
}

func (s *Server) collection(w http.ResponseWriter, r *http.Request) (*db.Collection, bool) {
	c, err := s.manager.GetCollection(r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return c, true
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Info())
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.manager.DeleteCollection(name); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.persistence != nil {
		if err := s.persistence.DeleteCollection(name); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Store.List())
}

type recordRequest struct {
	ID         string    `json:"id"`
	Embedding  []float32 `json:"embedding"`
	DocumentID string    `json:"document_id"`
	Metadata   string    `json:"metadata"`
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}

	var req recordRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	added, err := c.Store.Add(req.ID, req.Embedding, req.DocumentID, req.Metadata)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !added {
		writeJSON(w, http.StatusConflict, errorResponse{Error: errRecordExists.Error() + ": " + req.ID})
		return
	}

	writeJSON(w, http.StatusCreated, store.Record{
		ID:         req.ID,
		Embedding:  req.Embedding,
		DocumentID: req.DocumentID,
		Metadata:   req.Metadata,
	})
}

func (s *Server) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	c.Store.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	rec, found := c.Store.Get(id)
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errRecordNotFound.Error() + ": " + id})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}

	var req recordRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := r.PathValue("id")
	updated, err := c.Store.Update(id, req.Embedding, req.DocumentID, req.Metadata)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !updated {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errRecordNotFound.Error() + ": " + id})
		return
	}

	rec, found := c.Store.Get(id)
	if !found {
		// deleted right after the update
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errRecordNotFound.Error() + ": " + id})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if !c.Store.Delete(id) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errRecordNotFound.Error() + ": " + id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type compareRequest struct {
	Metric string    `json:"metric"`
	A      []float32 `json:"a"`
	B      []float32 `json:"b"`
}

type compareResponse struct {
	Metric string  `json:"metric"`
	Value  float32 `json:"value"`
}

func (s *Server) compare(metric string, a, b []float32) (compareResponse, error) {
	m := s.defaultMetric
	if metric != "" {
		parsed, err := vecmath.ParseMetric(metric)
		if err != nil {
			return compareResponse{}, err
		}
		m = parsed
	}

	value, err := vecmath.Compare(m, a, b)
	if err != nil {
		return compareResponse{}, err
	}
	if math.IsNaN(float64(value)) || math.IsInf(float64(value), 0) {
		return compareResponse{}, fmt.Errorf("%w: %s overflowed", errNonFinite, m)
	}
	return compareResponse{Metric: m.String(), Value: value}, nil
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.compare(req.Metric, req.A, req.B)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
