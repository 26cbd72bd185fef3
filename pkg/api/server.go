package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JayJamieson/duckcsv/pkg/db"
	"github.com/JayJamieson/duckcsv/pkg/handlers"
	"github.com/JayJamieson/duckcsv/pkg/source"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type Config struct {
	Port int
	S3   source.S3Config
}

type Server struct {
	config Config
	router *echo.Echo
	db     *db.DB
}

// New wires routes onto a fresh echo instance. The server does not own
// database; the caller closes it after Start returns.
func New(config Config, database *db.DB) *Server {
	e := echo.New()
	e.HideBanner = true

	server := &Server{
		config: config,
		router: e,
		db:     database,
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Logger.SetLevel(log.Level())

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandler(s.db, s.config.S3)

	api := s.router.Group("/api")
	api.POST("/import", h.ImportCSV)
	api.POST("/query", h.RunQuery)
	api.GET("/tables", h.ListTables)
	api.GET("/tables/:name", h.QueryTable)
	api.DELETE("/tables/:name", h.DropTable)

	s.setupDocRoutes()
}

func (s *Server) setupDocRoutes() {
	if _, err := LoadDoc(context.Background()); err != nil {
		log.Warnf("Serving unvalidated OpenAPI document: %v", err)
	}

	s.router.GET("/doc.yml", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/yaml", apiSpec)
	})
	s.router.GET("/swagger/*", echoSwagger.EchoWrapHandlerV3(func(c *echoSwagger.Config) {
		c.URLs = []string{"/doc.yml"}
	}))
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	go func() {
		addr := fmt.Sprintf(":%d", s.config.Port)
		if err := s.router.Start(addr); err != nil && err != http.ErrServerClosed {
			s.router.Logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.router.Logger.Info("Shutting down")

	if err := s.router.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
