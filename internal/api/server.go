package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"clubattend/internal/auth"
	"clubattend/internal/checkin"
	"clubattend/internal/session"
	"clubattend/pkg/interfaces"
)

// LiveChannel is the leader's WebSocket endpoint
type LiveChannel interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
	Stats() map[string]int
}

// Deps are the collaborators the HTTP surface needs
type Deps struct {
	DB       interfaces.DatabaseManager
	Sessions *session.Registry
	CheckIns *checkin.Service
	Authn    interfaces.Authenticator
	Live     LiveChannel // optional
}

// Options tunes the HTTP surface
type Options struct {
	AllowedOrigins []string // empty allows any origin
	Mode           string   // gin mode
}

// ARCHITECTURAL DISCOVERY: HTTP API layer serves as pure interface between external clients and internal components
// Clean separation - no business logic, only HTTP handling and JSON serialization
type Server struct {
	deps      Deps
	engine    *gin.Engine
	startedAt time.Time
}

// NewServer builds the gin engine with all routes
func NewServer(deps Deps, opts Options) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	registerValidators()

	s := &Server{
		deps:      deps,
		engine:    gin.New(),
		startedAt: time.Now(),
	}
	s.engine.Use(gin.Logger(), gin.Recovery())
	_ = s.engine.SetTrustedProxies(nil)
	s.engine.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	s.setupRoutes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// ARCHITECTURAL DISCOVERY: Route setup follows REST conventions with proper middleware
func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthCheck)
	if s.deps.Live != nil {
		s.engine.GET("/ws/attendance", gin.WrapF(s.deps.Live.HandleWebSocket))
	}

	api := s.engine.Group("/api", auth.RequireAuth(s.deps.Authn))

	attend := api.Group("/attend")
	attend.POST("/check", s.checkIn)
	attend.POST("/check_qr", s.checkInQR)
	attend.GET("/mine/:club_code", s.myAttendance)

	clubs := api.Group("/clubs")
	clubs.POST("/join", s.joinClub)
	clubs.GET("/:club_code/location", s.clubLocation)

	admin := api.Group("/admin", s.requireLeader)
	admin.POST("/dates", s.registerDates)
	admin.GET("/attendance/:date", s.roster)
	admin.PUT("/attendance/bulk", s.bulkUpdate)
	admin.PUT("/location", s.updateLocation)
	admin.GET("/session", s.sessionStatus)
	admin.DELETE("/session", s.stopSession)
	admin.GET("/session/qr", s.sessionQR)
}

// ServeHTTP implements http.Handler for integration with the standard HTTP server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Engine exposes the gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
