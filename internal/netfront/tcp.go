// Package netfront hosts linastore's two network listeners — the
// write-capable binary TCP protocol and the read-only HTTP surface — both
// of which translate requests into broker Packages and wait on the
// matching reply.
package netfront

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/linastore/linastore/internal/broker"
	"github.com/linastore/linastore/internal/wire"
)

const (
	perReadTimeout  = 5 * time.Second
	requestDeadline = 10 * time.Second
	pollInterval    = 10 * time.Millisecond
)

// AuthGate is consulted once per Auth-class request. The broker and
// content store never see auth traffic; session management is an external
// collaborator this function value is the seam for. The zero value always
// grants access, matching the "no password configured" default.
type AuthGate func(isAuth bool) bool

// AllowAll is the default AuthGate: it never rejects a request, matching
// spec's behavior when LINASTORE_PASSWORD is unset.
func AllowAll(bool) bool { return true }

// TCPServer accepts connections for the binary protocol, one goroutine per
// connection.
type TCPServer struct {
	addr           string
	broker         *broker.Broker
	gate           AuthGate
	maxPayloadSize int64
	log            zerolog.Logger
}

// NewTCPServer creates a TCPServer bound to addr.
func NewTCPServer(addr string, b *broker.Broker, gate AuthGate, maxPayloadSize int64, log zerolog.Logger) *TCPServer {
	if gate == nil {
		gate = AllowAll
	}
	return &TCPServer{addr: addr, broker: b, gate: gate, maxPayloadSize: maxPayloadSize, log: log}
}

// Serve listens on s.addr and accepts connections until ctx is cancelled.
func (s *TCPServer) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("netfront: listen tcp: %w", err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Info().Str("addr", s.addr).Msg("tcp listener started")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn().Err(err).Msg("tcp accept failed")
			continue
		}

		go s.handleConn(ctx, conn)
	}
}

func (s *TCPServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(perReadTimeout))
	req, err := wire.ReadRequest(conn, s.maxPayloadSize)
	if err != nil {
		s.log.Warn().Err(err).Msg("malformed request")
		return
	}

	op := wire.Op(req.Flags)
	if op == wire.OpAuth {
		s.gate(true)
		wire.WriteResponse(conn, wire.Response{Status: wire.StatusSuccess, Identifier: req.Identifier})
		return
	}

	pkg := broker.NewPackage()
	pkg.Behavior = behaviorFor(op)
	pkg.Content = broker.Content{
		Flags:      req.Flags,
		Identifier: req.Identifier,
		Data:       req.Data,
	}

	s.log.Debug().
		Hex("uni_id", pkg.UniID[:]).
		Uint64("quickhash", broker.QuickHash(pkg.Content)).
		Msg("order produced")

	if err := s.broker.ProduceOrder(pkg); err != nil {
		s.log.Warn().Err(err).Msg("broker order queue busy")
		return
	}

	reply, ok := s.waitForReply(ctx, pkg.UniID)
	if !ok {
		return
	}

	wire.WriteResponse(conn, wire.Response{
		Status:     wire.StatusFromBroker(reply.Status),
		Identifier: reply.Content.Identifier,
		Data:       reply.Content.Data,
	})
}

func (s *TCPServer) waitForReply(ctx context.Context, uniID [16]byte) (broker.Package, bool) {
	deadline := time.Now().Add(requestDeadline)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return broker.Package{}, false
		case <-ticker.C:
		}

		if pkg, ok, err := s.broker.ConsumeService(uniID); err == nil && ok {
			return pkg, true
		}
	}

	return broker.Package{}, false
}

func behaviorFor(op byte) broker.Behavior {
	switch op {
	case wire.OpWrite:
		return broker.BehaviorPutFile
	case wire.OpRead:
		return broker.BehaviorGetFile
	case wire.OpDelete:
		return broker.BehaviorDeleteFile
	default:
		return broker.BehaviorNone
	}
}
