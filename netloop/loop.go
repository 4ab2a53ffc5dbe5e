package netloop

import (
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"
	"net"
	"shadowswap/applog"
	"shadowswap/capture"
	"shadowswap/game"
	"shadowswap/session"
	"shadowswap/wire"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const receiveBufferSize = 1500

// Recorder receives a copy of every datagram that crossed the socket.
type Recorder interface {
	Record(dir capture.Direction, at time.Time, data []byte) error
	Flush() error
}

type Config struct {
	TickRate         uint
	PeerTimeout      time.Duration
	InboundQueueSize int
	Recorder         Recorder
}

func DefaultConfig() Config {
	return Config{
		TickRate:         60,
		PeerTimeout:      5 * time.Second,
		InboundQueueSize: 256,
	}
}

type Stats struct {
	Ticks        uint64 `json:"ticks"`
	Sent         uint64 `json:"sent"`
	Received     uint64 `json:"received"`
	Dropped      uint64 `json:"dropped"`
	DecodeErrors uint64 `json:"decodeErrors"`
	SendErrors   uint64 `json:"sendErrors"`
}

type datagram struct {
	data []byte
	at   time.Time
}

// Loop drives one session role at a fixed rate. A receive goroutine fills a bounded queue
// which the tick drains without blocking, so a slow or silent peer never stalls the simulation.
type Loop struct {
	cfg       Config
	role      session.Role
	transport Transport
	inbound   chan datagram
	dt        float32

	lastHeard atomic.Int64
	peerAlive atomic.Bool
	warnLimit *rate.Limiter

	ticks, sent, received, dropped, decodeErrors, sendErrors atomic.Uint64
}

func New(role session.Role, transport Transport, cfg Config) (*Loop, error) {
	if cfg.TickRate == 0 {
		return nil, fmt.Errorf("tick rate cannot be 0")
	}
	if cfg.InboundQueueSize <= 0 {
		cfg.InboundQueueSize = DefaultConfig().InboundQueueSize
	}

	return &Loop{
		cfg:       cfg,
		role:      role,
		transport: transport,
		inbound:   make(chan datagram, cfg.InboundQueueSize),
		dt:        1 / float32(cfg.TickRate),
		warnLimit: rate.NewLimiter(rate.Every(time.Second), 5),
	}, nil
}

// Run ticks until ctx is cancelled, then closes the transport and waits for the receiver to exit.
func (l *Loop) Run(ctx context.Context) error {
	receiverDone := make(chan struct{})
	go func() {
		defer close(receiverDone)
		l.receiveLoop()
	}()

	applog.FromContext(ctx).Info("Network loop started",
		zap.Stringer("role", l.role.PlayerID()),
		zap.Uint("tickRate", l.cfg.TickRate),
		zap.Duration("peerTimeout", l.cfg.PeerTimeout))

	ticker := time.NewTicker(time.Second / time.Duration(l.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := l.transport.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				applog.Warn("Error closing UDP connection", zap.Error(err))
			}
			<-receiverDone
			applog.FromContext(ctx).Info("Network loop stopped", zap.Any("stats", l.Stats()))
			return nil
		case now := <-ticker.C:
			l.tick(now)
		}
	}
}

func (l *Loop) receiveLoop() {
	buffer := make([]byte, receiveBufferSize)
	for {
		n, err := l.transport.Receive(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.warn("Error reading datagram", err)
			continue
		}

		now := time.Now()
		l.lastHeard.Store(now.UnixNano())
		l.received.Add(1)

		data := make([]byte, n)
		copy(data, buffer[:n])

		select {
		case l.inbound <- datagram{data: data, at: now}:
		default:
			l.dropped.Add(1)
			l.warn("Inbound queue full, dropping datagram", nil)
		}
	}
}

func (l *Loop) tick(now time.Time) {
	l.ticks.Add(1)
	l.drain()
	l.role.Advance(l.dt)
	l.send(now)

	if l.cfg.Recorder != nil {
		if err := l.cfg.Recorder.Flush(); err != nil {
			l.warn("Failed to flush capture", err)
		}
	}
	l.checkLiveness(now)
}

func (l *Loop) drain() {
	for {
		select {
		case d := <-l.inbound:
			l.record(capture.DirectionIn, d.at, d.data)

			msg, err := wire.Decode(d.data)
			if err != nil {
				l.decodeErrors.Add(1)
				applog.Debug("Dropping undecodable datagram", zap.Error(err))
				continue
			}
			l.role.IngestRemoteMessage(msg)
		default:
			return
		}
	}
}

func (l *Loop) send(now time.Time) {
	for _, msg := range l.role.ProduceOutboundMessages() {
		data := wire.Encode(msg)
		if err := l.transport.Send(data); err != nil {
			if errors.Is(err, ErrNoPeer) {
				return
			}
			l.sendErrors.Add(1)
			l.warn("Error sending datagram", fmt.Errorf("send %s: %w", wire.TagToString(msg.GetTag()), err))
			continue
		}
		l.sent.Add(1)
		l.record(capture.DirectionOut, now, data)
	}
}

func (l *Loop) record(dir capture.Direction, at time.Time, data []byte) {
	if l.cfg.Recorder == nil {
		return
	}
	if err := l.cfg.Recorder.Record(dir, at, data); err != nil {
		l.warn("Failed to capture datagram", err)
	}
}

func (l *Loop) checkLiveness(now time.Time) {
	heard := l.lastHeard.Load()
	if heard == 0 {
		return
	}

	alive := l.cfg.PeerTimeout <= 0 || now.Sub(time.Unix(0, heard)) <= l.cfg.PeerTimeout
	was := l.peerAlive.Swap(alive)
	switch {
	case alive && !was:
		applog.Info("Peer is talking", zap.String("peer", addrString(l.transport.Peer())))
	case !alive && was:
		applog.Warn("Peer went silent", zap.Duration("timeout", l.cfg.PeerTimeout))
		l.role.PeerTimedOut()
	}
}

// warn logs transport trouble without flooding the log when the socket keeps failing.
func (l *Loop) warn(msg string, err error) {
	if !l.warnLimit.Allow() {
		return
	}
	if err == nil {
		applog.Warn(msg)
		return
	}
	applog.Warn(msg, zap.Error(err))
}

func (l *Loop) PlayerID() game.PlayerID {
	return l.role.PlayerID()
}

func (l *Loop) Snapshot() game.State {
	return l.role.Snapshot()
}

func (l *Loop) ApplyLocalInput(in session.LocalInput) {
	l.role.ApplyLocalInput(in)
}

// PeerAlive reports whether the peer has been heard from within the peer timeout.
func (l *Loop) PeerAlive() bool {
	return l.peerAlive.Load()
}

func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:        l.ticks.Load(),
		Sent:         l.sent.Load(),
		Received:     l.received.Load(),
		Dropped:      l.dropped.Load(),
		DecodeErrors: l.decodeErrors.Load(),
		SendErrors:   l.sendErrors.Load(),
	}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
