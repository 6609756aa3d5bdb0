package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"clubattend/internal/api"
	"clubattend/internal/auth"
	"clubattend/internal/checkin"
	"clubattend/internal/config"
	"clubattend/internal/database"
	"clubattend/internal/session"
	"clubattend/internal/websocket"
	pkgdatabase "clubattend/pkg/database"
)

// Application coordinates all system components
// Clean dependency injection pattern with proper initialization order
type Application struct {
	config     *config.Config
	dbManager  *database.Manager
	sessions   *session.Registry
	registry   *websocket.Registry
	wsHandler  *websocket.Handler
	verifier   *auth.Verifier
	apiServer  *api.Server
	httpServer *http.Server
	listener   net.Listener
}

// NewApplication creates a new application instance with all components initialized
// Component initialization follows strict dependency order:
// Database → Seed → Sessions → Auth → Check-in → Live channel → API → HTTP
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Validate configuration before component initialization
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	location, err := cfg.Attendance.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// STEP 1: Initialize database manager (foundation layer)
	dbConfig := cfg.Database.ToDBConfig()
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database manager: %w", err)
	}

	// STEP 1.5: Apply database migrations to ensure schema is up to date
	migrationManager := pkgdatabase.NewMigrationManager(dbManager.GetDB(), dbManager.Driver())
	applied, err := migrationManager.ApplyMigrations()
	if err != nil {
		dbManager.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	if err := migrationManager.ValidateSchema(); err != nil {
		dbManager.Close()
		return nil, fmt.Errorf("database schema validation failed: %w", err)
	}
	log.Printf("Database migrations applied successfully: new=%d driver=%s", applied, dbManager.Driver())

	// STEP 2: Optional development seed
	if cfg.Database.SeedFile != "" {
		seed, err := LoadSeed(cfg.Database.SeedFile)
		if err == nil {
			err = seed.Apply(context.Background(), dbManager)
		}
		if err != nil {
			dbManager.Close()
			return nil, err
		}
	}

	// STEP 3: Attendance session registry (in-memory, never persisted)
	sessions := session.NewRegistry(session.NewNumericGenerator(cfg.Attendance.CodeLength))

	// STEP 4: Token verification shared by REST and the live channel
	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, dbManager)
	if err != nil {
		dbManager.Close()
		return nil, fmt.Errorf("failed to initialize authentication: %w", err)
	}

	// STEP 5: Member check-in path
	checkIns := checkin.NewService(checkin.NewValidator(sessions), dbManager)

	// STEP 6: Leader live channel
	registry := websocket.NewRegistry()
	wsHandler := websocket.NewHandler(registry, sessions, verifier, dbManager, dbManager, websocket.Options{
		RotationInterval:   cfg.Attendance.RotationInterval,
		AuthTimeout:        cfg.WebSocket.AuthTimeout,
		PingInterval:       cfg.WebSocket.PingInterval,
		ReadTimeout:        cfg.WebSocket.ReadTimeout,
		WriteTimeout:       cfg.WebSocket.WriteTimeout,
		MaxSessionDuration: cfg.Attendance.MaxSessionDuration,
		Location:           location,
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
	})

	// STEP 7: REST surface; the live channel is mounted on the same engine
	apiServer := api.NewServer(api.Deps{
		DB:       dbManager,
		Sessions: sessions,
		CheckIns: checkIns,
		Authn:    verifier,
		Live:     wsHandler,
	}, api.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Mode:           cfg.HTTP.Mode,
	})

	// STEP 8: Setup HTTP server
	// TECHNICAL DISCOVERY: WriteTimeout applies to hijacked WebSocket
	// connections only until the upgrade, so long-lived leader screens are bound
	// by the ping/pong deadlines instead
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      apiServer,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		dbManager:  dbManager,
		sessions:   sessions,
		registry:   registry,
		wsHandler:  wsHandler,
		verifier:   verifier,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start begins application execution
// Binding happens synchronously so a port conflict is reported to the caller
func (app *Application) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	app.listener = listener
	log.Printf("Starting clubattend application on %s", listener.Addr())

	go func() {
		if err := app.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	log.Printf("clubattend application started successfully")
	return nil
}

// Stop gracefully shuts down the application
// Reverse dependency order: HTTP → live connections → sessions → Database
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down clubattend application")

	// STEP 1: Stop accepting new requests
	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// STEP 2: Tell every leader screen the server is going away
	closed := app.wsHandler.CloseAll()

	// STEP 3: Close whatever sessions the connections did not release
	remaining := app.sessions.CloseAll()
	log.Printf("Live attendance closed: connections=%d orphan_sessions=%d", closed, remaining)

	// STEP 4: Close database connections
	if err := app.dbManager.Close(); err != nil {
		log.Printf("Database shutdown error: %v", err)
	}

	log.Printf("clubattend application shutdown complete")
	return nil
}

// GetAddr returns the server address for external connections
func (app *Application) GetAddr() string {
	if app.listener != nil {
		return app.listener.Addr().String()
	}
	return app.httpServer.Addr
}

// Handler returns the HTTP handler serving the REST API and the live channel
func (app *Application) Handler() http.Handler {
	return app.apiServer
}

// Verifier exposes the token verifier, used to mint tokens in tests
func (app *Application) Verifier() *auth.Verifier {
	return app.verifier
}

// Database exposes the database manager
func (app *Application) Database() *database.Manager {
	return app.dbManager
}

// Sessions exposes the attendance session registry
func (app *Application) Sessions() *session.Registry {
	return app.sessions
}

// ShutdownTimeout returns the configured graceful shutdown budget
func (app *Application) ShutdownTimeout() time.Duration {
	return app.config.HTTP.ShutdownTimeout
}
