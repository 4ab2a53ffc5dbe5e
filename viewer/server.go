package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"go.uber.org/zap"
	"net"
	"net/http"
	"shadowswap/applog"
	"shadowswap/game"
	"shadowswap/session"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readLimit    = 4096
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
)

// Session is the part of a running session the viewer reads from and feeds input into.
type Session interface {
	PlayerID() game.PlayerID
	Snapshot() game.State
	PeerAlive() bool
	ApplyLocalInput(in session.LocalInput)
}

type Server struct {
	session       Session
	frameInterval time.Duration
	upgrader      websocket.Upgrader
}

func NewServer(s Session, frameRate uint) *Server {
	if frameRate == 0 {
		frameRate = 60
	}
	return &Server{
		session:       s,
		frameInterval: time.Second / time.Duration(frameRate),
		upgrader: websocket.Upgrader{
			// Renderers run locally; the listen address is what restricts access.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	applog.Info("Viewer listening", zap.String("address", listener.Addr().String()), zap.String("endpoint", "/ws"))
	if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warn("Viewer upgrade failed", zap.Error(err))
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	applog.Info("Viewer connected", zap.String("remote", remote))

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeFrames(r.Context(), conn, done)
	}()

	for {
		var event InputEvent
		if err := conn.ReadJSON(&event); err != nil {
			if isBadInput(err) {
				applog.Warn("Ignoring malformed viewer input", zap.String("remote", remote), zap.Error(err))
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				applog.Debug("Viewer read ended", zap.String("remote", remote), zap.Error(err))
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		s.session.ApplyLocalInput(event.LocalInput())
	}

	// Nobody is holding a key any more.
	s.session.ApplyLocalInput(session.LocalInput{})
	close(done)
	<-writerDone
	applog.Info("Viewer disconnected", zap.String("remote", remote))
}

// isBadInput reports whether a read failed on the message content rather than the connection.
func isBadInput(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// writeFrames is the only writer on conn.
func (s *Server) writeFrames(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	frames := time.NewTicker(s.frameInterval)
	defer frames.Stop()
	pings := time.NewTicker(pingInterval)
	defer pings.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			return
		case <-frames.C:
			frame := NewFrame(s.session.Snapshot(), s.session.PlayerID(), s.session.PeerAlive())
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				_ = conn.Close()
				return
			}
		case <-pings.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
