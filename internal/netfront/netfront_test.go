package netfront

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/linastore/linastore/format"
	"github.com/linastore/linastore/internal/broker"
	"github.com/linastore/linastore/internal/catalogue"
	"github.com/linastore/linastore/internal/codec"
	"github.com/linastore/linastore/internal/shutdown"
	"github.com/linastore/linastore/internal/store"
	"github.com/linastore/linastore/internal/wire"
	"github.com/linastore/linastore/internal/worker"
)

func newTestSystem(t *testing.T) (*broker.Broker, *shutdown.Flag) {
	t.Helper()

	dir := t.TempDir()
	cat, err := catalogue.Open(filepath.Join(dir, "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	cdc, err := codec.New(format.CompressionFlate)
	require.NoError(t, err)

	s, err := store.New(dir, cat, cdc)
	require.NoError(t, err)

	b := broker.New()
	flag := shutdown.New()
	p := worker.New(b, s, flag, zerolog.Nop())
	go p.Run()
	t.Cleanup(flag.Trigger)

	require.NoError(t, s.Put("seed.txt", []byte("seed content"), false, false))

	return b, flag
}

func TestTCPServer_PutAndGet(t *testing.T) {
	b, _ := newTestSystem(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	srv := NewTCPServer(addr, b, nil, 1<<20, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, time.Second, 10*time.Millisecond)

	var identifier [broker.NameSize]byte
	copy(identifier[:], "uploaded.txt")

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	data := []byte("hello over tcp")
	require.NoError(t, writeRequestFrame(conn, wire.OpWrite, identifier, data))

	status, _, err := readResponseFrame(conn)
	require.NoError(t, err)
	require.Equal(t, wire.StatusSuccess, status)

	conn2, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn2.Close()

	require.NoError(t, writeRequestFrame(conn2, wire.OpRead, identifier, nil))

	getStatus, getData, err := readResponseFrame(conn2)
	require.NoError(t, err)
	require.Equal(t, wire.StatusSuccess, getStatus)
	require.Equal(t, data, getData)
}

func TestHTTPServer_Get(t *testing.T) {
	b, _ := newTestSystem(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	srv := NewHTTPServer(addr, b, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Get("http://" + addr + "/seed.txt")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, []byte("seed content"), body)

	notFound, err := http.Get("http://" + addr + "/missing.txt")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, notFound.StatusCode)
	notFound.Body.Close()

	badMethod, err := http.Post("http://"+addr+"/seed.txt", "text/plain", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, badMethod.StatusCode)
	badMethod.Body.Close()

	badPath, err := http.Get("http://" + addr + "/a/b")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, badPath.StatusCode)
	badPath.Body.Close()
}

func TestContentTypeFor(t *testing.T) {
	require.Equal(t, "image/jpeg", contentTypeFor("photo.JPG"))
	require.Equal(t, "application/octet-stream", contentTypeFor("data.bin"))
}

// writeRequestFrame and readResponseFrame are a minimal client-side
// counterpart of internal/wire's server-side ReadRequest/WriteResponse; the
// request and response frames share an identical on-wire layout (a leading
// byte, identifier, length, checksum, data), so WriteResponse/ReadRequest
// can stand in for the client side of that same frame shape in tests.
func writeRequestFrame(conn net.Conn, flags byte, identifier [broker.NameSize]byte, data []byte) error {
	return wire.WriteResponse(conn, wire.Response{
		Status:     wire.Status(flags),
		Identifier: identifier,
		Data:       data,
	})
}

func readResponseFrame(conn net.Conn) (wire.Status, []byte, error) {
	req, err := wire.ReadRequest(conn, 1<<20)
	if err != nil {
		return 0, nil, err
	}
	return wire.Status(req.Flags), req.Data, nil
}
