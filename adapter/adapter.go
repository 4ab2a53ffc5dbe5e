package adapter

import (
	"context"
	"fmt"
	"go.uber.org/zap"
	"net"
	"shadowswap/applog"
	"shadowswap/capture"
	"shadowswap/launcher"
	"shadowswap/netloop"
	"shadowswap/session"
	"shadowswap/util"
	"shadowswap/viewer"
)

// Adapter wires one game process: the UDP socket, the session role, the network loop and
// the optional capture and viewer around it.
type Adapter struct {
	ctx          context.Context
	cancel       context.CancelFunc
	launcherInfo *launcher.Info
	loop         *netloop.Loop
	ready        chan struct{}
}

func New(ctx context.Context, cancel context.CancelFunc, info *launcher.Info) *Adapter {
	return &Adapter{
		ctx:          ctx,
		cancel:       cancel,
		launcherInfo: info,
		ready:        make(chan struct{}),
	}
}

// Ready is closed once the network loop exists.
func (a *Adapter) Ready() <-chan struct{} {
	return a.ready
}

// Loop is nil until Ready is closed.
func (a *Adapter) Loop() *netloop.Loop {
	select {
	case <-a.ready:
		return a.loop
	default:
		return nil
	}
}

// Start blocks until the context is cancelled. Errors during setup are returned immediately.
func (a *Adapter) Start() error {
	role, transport, conn, err := a.openTransport()
	if err != nil {
		return err
	}

	if err = util.MarkLowLatency(conn); err != nil {
		applog.Warn("Could not mark game traffic as low latency", zap.Error(err))
	}

	ctx := applog.AddContextFields(a.ctx,
		zap.String("local", conn.LocalAddr().String()),
		zap.Stringer("player", role.PlayerID()))

	cfg := netloop.DefaultConfig()
	cfg.TickRate = a.launcherInfo.TickRate
	cfg.PeerTimeout = a.launcherInfo.PeerTimeout

	if a.launcherInfo.CapturePath != "" {
		recorder, err := capture.Create(a.launcherInfo.CapturePath)
		if err != nil {
			_ = transport.Close()
			return err
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				applog.Warn("Failed to close capture", zap.Error(err))
			}
		}()
		cfg.Recorder = recorder
		applog.Info("Capturing datagrams", zap.String("path", a.launcherInfo.CapturePath))
	}

	loop, err := netloop.New(role, transport, cfg)
	if err != nil {
		_ = transport.Close()
		return err
	}

	if a.launcherInfo.ViewerAddr != "" {
		listener, err := net.Listen("tcp", a.launcherInfo.ViewerAddr)
		if err != nil {
			_ = transport.Close()
			return fmt.Errorf("could not listen for viewers: %w", err)
		}

		go func() {
			if err := viewer.NewServer(loop, a.launcherInfo.TickRate).Serve(ctx, listener); err != nil {
				applog.Error("Viewer stopped", zap.Error(err))
				a.cancel()
			}
		}()
	}

	a.loop = loop
	close(a.ready)
	return loop.Run(ctx)
}

func (a *Adapter) openTransport() (session.Role, netloop.Transport, *net.UDPConn, error) {
	info := a.launcherInfo

	switch info.Role {
	case launcher.RoleHost:
		addr, err := net.ResolveUDPAddr("udp", info.ListenAddress())
		if err != nil {
			return nil, nil, nil, err
		}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("could not bind %s: %w", addr, err)
		}
		applog.Info("Hosting, waiting for a client", zap.String("address", conn.LocalAddr().String()))
		return session.NewHost(), netloop.NewHostTransport(conn), conn, nil

	case launcher.RoleClient:
		addr, err := net.ResolveUDPAddr("udp", info.PeerAddress())
		if err != nil {
			return nil, nil, nil, err
		}
		conn, err := net.DialUDP("udp", nil, addr)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("could not connect to %s: %w", addr, err)
		}
		applog.Info("Joining host", zap.String("host", addr.String()))
		return session.NewClient(), netloop.NewClientTransport(conn), conn, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown role '%s'", info.Role)
	}
}
