package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rideline/ridewatch/internal/monitor"
	"github.com/rideline/ridewatch/internal/notify"
	"github.com/rideline/ridewatch/internal/ride"
)

// Dispatcher is the subset of the dispatch client the HTTP surface needs.
type Dispatcher interface {
	Create(ctx context.Context, req ride.Request) (string, error)
	Cancel(ctx context.Context, requestID string) error
}

// Router provides the HTTP handlers for creating, canceling, and inspecting
// monitored ride requests.
// Endpoints:
//
//	POST {basePath}/rides          body: createRideRequest JSON
//	POST {basePath}/rides/cancel   query: id=...
//	GET  {basePath}/rides/status   query: id=... (single) or all=true (list)
//	GET  {basePath}/events         websocket notice stream
//	GET  {basePath}/healthz
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	mgr        *monitor.Manager
	dispatcher Dispatcher
	hub        *notify.Hub
	basePath   string
	jwtSecret  string
}

// NewRouter constructs a Router. jwtSecret guards the mutating endpoints
// when non-empty; hub may be nil to disable the websocket stream.
func NewRouter(mgr *monitor.Manager, d Dispatcher, hub *notify.Hub, basePath, jwtSecret string) *Router {
	return &Router{
		mgr:        mgr,
		dispatcher: d,
		hub:        hub,
		basePath:   sanitizeBase(basePath),
		jwtSecret:  jwtSecret,
	}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/healthz", r.handleHealth)
	group.GET("/rides/status", r.handleStatus)
	if r.hub != nil {
		group.GET("/events", r.handleEvents)
	}

	mutating := group.Group("")
	if r.jwtSecret != "" {
		mutating.Use(jwtAuth(r.jwtSecret))
	}
	mutating.POST("/rides", r.handleCreate)
	mutating.POST("/rides/cancel", r.handleCancel)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr string, r *Router) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type createRideRequest struct {
	Recipient   string `json:"recipient" binding:"required"`
	Origin      string `json:"origem" binding:"required"`
	Destination string `json:"destino" binding:"required"`
	Fare        string `json:"valor"`
	Note        string `json:"observacao"`
}

type createRideResponse struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"request_id"`
}

func (r *Router) handleCreate(c *gin.Context) {
	var body createRideRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	req := ride.Request{
		Origin:      body.Origin,
		Destination: body.Destination,
		Fare:        body.Fare,
		Note:        body.Note,
	}
	id, err := r.dispatcher.Create(c.Request.Context(), req)
	if err != nil {
		writeJSON(c, http.StatusBadGateway, errorResp{Error: err.Error()})
		return
	}
	req.ID = id
	if err := r.mgr.StartMonitor(id, body.Recipient, req, true); err != nil {
		writeJSON(c, http.StatusConflict, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, createRideResponse{OK: true, RequestID: id})
}

func (r *Router) handleCancel(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "id query param required"})
		return
	}
	if !isSafeID(id) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid id"})
		return
	}
	// The owning monitor is not touched here; it observes the resulting
	// terminal status on its next poll.
	if err := r.dispatcher.Cancel(c.Request.Context(), id); err != nil {
		writeJSON(c, http.StatusBadGateway, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	id := c.Query("id")
	all := c.Query("all")
	if id == "" && all == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "one of id, all query param required"})
		return
	}
	if id != "" {
		st, err := r.mgr.Snapshot(id)
		if err != nil {
			writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
			return
		}
		writeJSON(c, http.StatusOK, st)
		return
	}
	writeJSON(c, http.StatusOK, r.mgr.SnapshotAll())
}

func (r *Router) handleEvents(c *gin.Context) {
	if err := r.hub.ServeWS(c.Writer, c.Request); err != nil {
		// Upgrade failures already wrote a response.
		return
	}
}

func (r *Router) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"ok": true, "active_monitors": r.mgr.Count()})
}
