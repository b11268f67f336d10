// Command linastore runs the content store's two front ends (binary TCP
// protocol and read-only HTTP) against a shared catalogue, codec, and
// broker, with a single porter goroutine as the catalogue's sole writer.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/linastore/linastore/format"
	"github.com/linastore/linastore/internal/broker"
	"github.com/linastore/linastore/internal/catalogue"
	"github.com/linastore/linastore/internal/codec"
	"github.com/linastore/linastore/internal/config"
	"github.com/linastore/linastore/internal/netfront"
	"github.com/linastore/linastore/internal/obs"
	"github.com/linastore/linastore/internal/shutdown"
	"github.com/linastore/linastore/internal/store"
	"github.com/linastore/linastore/internal/worker"
)

func main() {
	log := obs.New("linastore")
	cfg := config.Load(log)

	dataDir := os.Getenv("LINASTORE_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create data directory")
	}

	cat, err := catalogue.Open(filepath.Join(dataDir, "meta.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open catalogue")
	}
	defer cat.Close()

	cdc, err := codec.New(format.CompressionFlate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create codec")
	}

	st, err := store.New(dataDir, cat, cdc)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create content store")
	}

	b := broker.New()
	flag := shutdown.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b.RunSweepers(ctx)

	porterLog := obs.New("porter")
	p := worker.New(b, st, flag, porterLog)
	go p.Run()

	var gate netfront.AuthGate = netfront.AllowAll
	if cfg.PasswordEnabled {
		gate = func(isAuth bool) bool { return isAuth }
	}

	tcpAddr := net.JoinHostPort(cfg.IP, fmt.Sprintf("%d", cfg.AdvancedPort))
	httpAddr := net.JoinHostPort(cfg.IP, fmt.Sprintf("%d", cfg.HTTPPort))

	tcpServer := netfront.NewTCPServer(tcpAddr, b, gate, cfg.MaxPayloadSize, obs.New("tcp"))
	httpServer := netfront.NewHTTPServer(httpAddr, b, obs.New("http"))

	go func() {
		if err := tcpServer.Serve(ctx); err != nil {
			log.Error().Err(err).Msg("tcp server stopped")
		}
	}()
	go func() {
		if err := httpServer.Serve(ctx); err != nil {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	log.Info().Str("tcp", tcpAddr).Str("http", httpAddr).Msg("linastore ready")

	waitForShutdown(flag)
	cancel()
	log.Info().Msg("linastore shutting down")
}

// waitForShutdown blocks until the shutdown flag is set, polling at a
// coarse interval since this is the top-level process loop, not a hot path.
func waitForShutdown(flag *shutdown.Flag) {
	for !flag.IsShutdown() {
		time.Sleep(200 * time.Millisecond)
	}
}
