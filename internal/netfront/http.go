package netfront

import (
	"context"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/linastore/linastore/internal/broker"
)

// contentTypeByExt is the fixed extension → MIME table spec names; anything
// else falls back to application/octet-stream.
var contentTypeByExt = map[string]string{
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"mp4":  "video/mp4",
	"pdf":  "application/pdf",
	"txt":  "text/plain",
	"json": "application/json",
	"html": "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"svg":  "image/svg+xml",
	"webp": "image/webp",
	"gif":  "image/gif",
	"ico":  "image/x-icon",
	"xml":  "application/xml",
}

// HTTPServer is the read-only GET /<name> surface sharing the broker with
// TCPServer.
type HTTPServer struct {
	addr   string
	broker *broker.Broker
	log    zerolog.Logger
	srv    *http.Server
}

// NewHTTPServer creates an HTTPServer bound to addr.
func NewHTTPServer(addr string, b *broker.Broker, log zerolog.Logger) *HTTPServer {
	s := &HTTPServer{addr: addr, broker: b, log: log}
	s.srv = &http.Server{Addr: addr, Handler: http.HandlerFunc(s.handle)}
	return s
}

// Serve listens on s.addr until ctx is cancelled.
func (s *HTTPServer) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.srv.Close()
	}()

	s.log.Info().Str("addr", s.addr).Msg("http listener started")

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/")
	if name == "" || strings.Contains(name, "/") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	pkg := broker.NewPackage()
	pkg.Behavior = broker.BehaviorGetFile
	var identifier [broker.NameSize]byte
	copy(identifier[:], name)
	pkg.Content.Identifier = identifier

	s.log.Debug().
		Hex("uni_id", pkg.UniID[:]).
		Uint64("quickhash", broker.QuickHash(pkg.Content)).
		Msg("order produced")

	if err := s.broker.ProduceOrder(pkg); err != nil {
		s.log.Warn().Err(err).Msg("broker order queue busy")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	reply, ok := s.waitForReply(r.Context(), pkg.UniID)
	if !ok {
		w.WriteHeader(http.StatusRequestTimeout)
		return
	}

	if reply.Status != broker.StatusSuccess {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(name))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Write(reply.Content.Data)
}

func (s *HTTPServer) waitForReply(ctx context.Context, uniID [16]byte) (broker.Package, bool) {
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

func contentTypeFor(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if ct, ok := contentTypeByExt[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
