// Package worker implements the porter: the single long-running loop that
// is the only writer to the catalogue, turning broker order Packages into
// content store operations and producing reply Packages.
package worker

import (
	"bytes"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/linastore/linastore/internal/broker"
	"github.com/linastore/linastore/internal/shutdown"
	"github.com/linastore/linastore/internal/store"
	"github.com/linastore/linastore/internal/store/storeerr"
)

// Flag bits within Content.Flags, per the wire protocol's low nibble.
const (
	flagCover    byte = 0x02
	flagCompress byte = 0x01
)

// idle-sleep steps, credit-counter driven: FAST while credit remains (work
// was done recently), decaying through NORMAL and into SLOW as consecutive
// empty cycles drain the credit counter to zero.
var idleSteps = []time.Duration{
	500 * time.Microsecond,
	8 * time.Millisecond,
	16 * time.Millisecond,
	100 * time.Millisecond,
	200 * time.Millisecond,
}

const startingCredit = 64

// errorLogEvery rate-limits error logging to every Nth occurrence.
const errorLogEvery = 100

// Porter is the content store's single writer, dispatching order packages
// and producing replies on the service queue.
type Porter struct {
	b     *broker.Broker
	s     *store.Store
	flag  *shutdown.Flag
	log   zerolog.Logger
	errCh atomic.Uint64
}

// New creates a Porter bound to b and s, stopping when flag is signaled.
func New(b *broker.Broker, s *store.Store, flag *shutdown.Flag, log zerolog.Logger) *Porter {
	return &Porter{b: b, s: s, flag: flag, log: log}
}

// Run executes the porter's loop until the shutdown flag is set. It is
// intended to run on its own goroutine for the process's lifetime.
func (p *Porter) Run() {
	p.log.Info().Msg("porter started")

	credit := 0
	consecutiveEmpty := 0

	for !p.flag.IsShutdown() {
		pkg, ok, err := p.b.ConsumeOrder()
		if err != nil {
			p.logError(err)
			time.Sleep(idleSteps[0])
			continue
		}

		if !ok {
			consecutiveEmpty++
			if credit > 0 {
				credit--
			}
			time.Sleep(idleSleep(credit, consecutiveEmpty))
			continue
		}

		credit = startingCredit
		consecutiveEmpty = 0
		p.dispatch(pkg)
	}

	p.log.Info().Msg("porter stopped")
}

func idleSleep(credit, consecutiveEmpty int) time.Duration {
	if credit > 0 {
		return idleSteps[0]
	}

	// Step through NORMAL towards SLOW one empty cycle at a time once the
	// credit granted by the last piece of work has run out.
	step := consecutiveEmpty - startingCredit
	if step < 0 {
		step = 0
	}
	if step >= len(idleSteps) {
		step = len(idleSteps) - 1
	}

	return idleSteps[step]
}

// dispatch runs the operation named by pkg.Behavior and produces the reply
// onto the service queue.
func (p *Porter) dispatch(pkg broker.Package) {
	reply := broker.Package{
		UniID: pkg.UniID,
		Content: broker.Content{
			Flags:      pkg.Content.Flags,
			Identifier: pkg.Content.Identifier,
		},
		CreatedAt: time.Now(),
	}

	name := parseName(pkg.Content.Identifier)
	if name == "" {
		reply.Status = broker.StatusFileNameInvalid
		p.reply(reply)
		return
	}

	switch pkg.Behavior {
	case broker.BehaviorPutFile:
		p.handlePut(pkg, name, &reply)
	case broker.BehaviorGetFile:
		p.handleGet(name, &reply)
	case broker.BehaviorDeleteFile:
		p.handleDelete(name, &reply)
	default:
		p.log.Error().Str("name", name).Msg("[porter] unknown behavior")
		reply.Status = broker.StatusInternalError
	}

	p.reply(reply)
}

func (p *Porter) handlePut(pkg broker.Package, name string, reply *broker.Package) {
	cover := pkg.Content.Flags&flagCover == flagCover
	compress := pkg.Content.Flags&flagCompress == flagCompress

	if err := p.s.Put(name, pkg.Content.Data, cover, compress); err != nil {
		p.logError(err)
		reply.Status = statusFor(err)
		return
	}

	p.log.Info().Str("name", name).Msg("[porter] put succeeded")
	reply.Status = broker.StatusSuccess
}

func (p *Porter) handleGet(name string, reply *broker.Package) {
	data, err := p.s.Get(name)
	if err != nil {
		reply.Status = statusFor(err)
		return
	}

	reply.Status = broker.StatusSuccess
	reply.Content.Data = data
}

func (p *Porter) handleDelete(name string, reply *broker.Package) {
	if err := p.s.Delete(name, false); err != nil {
		p.logError(err)
		reply.Status = statusFor(err)
		return
	}

	reply.Status = broker.StatusSuccess
}

func (p *Porter) reply(pkg broker.Package) {
	if err := p.b.ProduceService(pkg); err != nil {
		p.logError(err)
	}
}

// logError rate-limits error logging to avoid flooding under sustained
// contention or repeated store failures.
func (p *Porter) logError(err error) {
	n := p.errCh.Add(1)
	if n%errorLogEvery == 1 {
		p.log.Error().Err(err).Uint64("count", n).Msg("[porter]")
	}
}

func statusFor(err error) broker.Status {
	switch storeerr.CodeOf(err) {
	case storeerr.NotFound:
		return broker.StatusFileNotFound
	case storeerr.InvalidName:
		return broker.StatusFileNameInvalid
	case storeerr.StoreFailed:
		return broker.StatusStoreFailed
	default:
		return broker.StatusInternalError
	}
}

// parseName extracts the effective name from a fixed-width, zero-padded
// identifier buffer: the prefix up to the first NUL byte, or the whole
// buffer if none is present.
func parseName(identifier [broker.NameSize]byte) string {
	if i := bytes.IndexByte(identifier[:], 0); i >= 0 {
		return string(identifier[:i])
	}
	return string(identifier[:])
}
