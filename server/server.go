// Package server exposes the recorder and downloader to the popup over HTTP
// and streams error events to websocket listeners.
package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/mrsingh-rishi/meeting-transcriber/download"
	"github.com/mrsingh-rishi/meeting-transcriber/events"
	"github.com/mrsingh-rishi/meeting-transcriber/logging"
	"github.com/mrsingh-rishi/meeting-transcriber/message"
	"github.com/mrsingh-rishi/meeting-transcriber/model"
	"github.com/mrsingh-rishi/meeting-transcriber/workers"
)

// Recorder is the part of the recorder the server drives.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() model.RecordingState
	Levels() []workers.Level
}

// Downloader saves a referenced file.
type Downloader interface {
	DownloadFile(ctx context.Context, url, filename string) download.Result
}

// Server is the daemon's HTTP surface.
type Server struct {
	app *fiber.App
	rec Recorder
	dl  Downloader
	hub *events.Hub
}

// New builds the fiber app and its routes.
func New(rec Recorder, dl Downloader, hub *events.Hub) *Server {
	s := &Server{rec: rec, dl: dl, hub: hub}
	s.app = fiber.New(fiber.Config{
		AppName:               "meetrec",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(requestLogger)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api")
	api.Post("/messages", s.handleMessage)
	api.Get("/levels", func(c *fiber.Ctx) error {
		levels := s.rec.Levels()
		if levels == nil {
			levels = []workers.Level{}
		}
		return c.JSON(levels)
	})
	api.Get("/events", func(c *fiber.Ctx) error {
		recent := s.hub.Recent()
		if recent == nil {
			recent = []events.Event{}
		}
		return c.JSON(recent)
	})

	// Middleware to require WebSocket upgrade on /events
	s.app.Use("/events", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/events", websocket.New(s.handleEvents))
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	logging.Info(logging.CategoryServer, "Fiber server listening on %s", addr)
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	logging.Info(logging.CategoryServer, "Fiber server listening on %s", ln.Addr())
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleMessage(c *fiber.Ctx) error {
	var req message.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(message.ErrorResponse{Error: "invalid JSON"})
	}
	logging.Debug(logging.CategoryServer, "Received message: %s", req.Action)
	ctx := c.UserContext()

	switch req.Action {
	case message.ActionStartRecording:
		if err := s.rec.Start(ctx); err != nil {
			logging.Error(logging.CategoryServer, "Start recording failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(message.Response{Success: false, Error: err.Error()})
		}
		return c.JSON(message.Response{Success: true})

	case message.ActionStopRecording:
		if err := s.rec.Stop(ctx); err != nil {
			logging.Error(logging.CategoryServer, "Stop recording failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(message.Response{Success: false, Error: err.Error()})
		}
		return c.JSON(message.Response{Success: true})

	case message.ActionGetStatus:
		return c.JSON(message.StatusResponse{IsRecording: s.rec.Status() == model.Recording})

	case message.ActionDownloadFile:
		return c.JSON(s.dl.DownloadFile(ctx, req.URL, req.Filename))

	default:
		return c.Status(fiber.StatusBadRequest).JSON(message.ErrorResponse{Error: "unknown action"})
	}
}

// handleEvents registers the connection with the hub and forwards events
// until the peer goes away.
func (s *Server) handleEvents(conn *websocket.Conn) {
	client := events.NewClient()
	s.hub.Register(client)
	logging.Info(logging.CategoryEvents, "WebSocket /events connected client=%s", client.ID)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.WritePump(ctx, conn)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info(logging.CategoryEvents, "WebSocket closed normally client=%s", client.ID)
			} else {
				logging.Debug(logging.CategoryEvents, "WebSocket read error client=%s: %v", client.ID, err)
			}
			break
		}
	}

	s.hub.Unregister(client)
	cancel()
	<-done
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	logging.Debug(logging.CategoryServer, "%s %s -> %d (%s)", c.Method(), c.Path(), c.Response().StatusCode(), time.Since(start))
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(message.ErrorResponse{Error: err.Error()})
}
