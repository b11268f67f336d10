// Package broker implements the two-queue conveyor that decouples the
// network front ends from the single-writer porter: front ends enqueue
// Packages onto the order queue and poll the service queue for their reply.
package broker

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome a reply Package carries back to its waiter.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusFileNotFound
	StatusStoreFailed
	StatusFileNameInvalid
	StatusInternalError
	StatusNone Status = 255
)

// Behavior selects which content-store operation the porter runs for a
// request Package.
type Behavior uint8

const (
	BehaviorNone Behavior = iota
	BehaviorGetFile
	BehaviorPutFile
	BehaviorDeleteFile
)

// NameSize is the fixed width of Content.Identifier, matching the wire
// protocol's identifier field.
const NameSize = 255

// Content is the request/response payload carried inside a Package: the
// wire-level flags, the fixed-width name buffer, and the body bytes.
type Content struct {
	Flags      byte
	Identifier [NameSize]byte
	Data       []byte
}

// Package is one unit of work flowing through the broker: a request when
// produced to the order queue, a reply when produced to the service queue.
// UniID correlates a reply back to the request that spawned it.
type Package struct {
	Status    Status
	UniID     [16]byte
	Behavior  Behavior
	Content   Content
	CreatedAt time.Time
}

// NewPackage creates a Package with a fresh UUIDv4 UniID and CreatedAt set
// to now.
func NewPackage() Package {
	return Package{
		Status:    StatusNone,
		UniID:     uuid.New(),
		Behavior:  BehaviorNone,
		CreatedAt: time.Now(),
	}
}

// queue is a FIFO of Packages guarded by a mutex that callers acquire
// non-blockingly, matching the design's "fail fast on contention" rule.
type queue struct {
	mu    sync.Mutex
	items []Package
}

func (q *queue) tryLock() bool {
	return q.mu.TryLock()
}

// ErrQueueBusy is returned by the non-blocking queue operations when the
// lock could not be acquired even after the bounded retry schedule.
var ErrQueueBusy = fmt.Errorf("broker: queue busy")

// Broker owns the order queue (front end → porter) and the service queue
// (porter → front end).
type Broker struct {
	order   queue
	service queue
}

// New creates an empty Broker.
func New() *Broker {
	return &Broker{}
}

// retrySchedule is the bounded exponential backoff used by every
// non-blocking queue operation: at most 3 retries, starting at 1ms.
var retrySchedule = [...]time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}

func withRetry(try func() bool) error {
	if try() {
		return nil
	}

	for _, wait := range retrySchedule {
		time.Sleep(wait)
		if try() {
			return nil
		}
	}

	return ErrQueueBusy
}

// ProduceOrder appends pkg to the order queue.
func (b *Broker) ProduceOrder(pkg Package) error {
	return withRetry(func() bool {
		if !b.order.tryLock() {
			return false
		}
		defer b.order.mu.Unlock()
		b.order.items = append(b.order.items, pkg)
		return true
	})
}

// ConsumeOrder pops and returns the head of the order queue, or (Package{},
// false) if it is empty.
func (b *Broker) ConsumeOrder() (Package, bool, error) {
	var pkg Package
	var found bool

	err := withRetry(func() bool {
		if !b.order.tryLock() {
			return false
		}
		defer b.order.mu.Unlock()

		if len(b.order.items) == 0 {
			return true
		}
		pkg = b.order.items[0]
		b.order.items = b.order.items[1:]
		found = true
		return true
	})

	return pkg, found, err
}

// ProduceService appends pkg to the service queue.
func (b *Broker) ProduceService(pkg Package) error {
	return withRetry(func() bool {
		if !b.service.tryLock() {
			return false
		}
		defer b.service.mu.Unlock()
		b.service.items = append(b.service.items, pkg)
		return true
	})
}

// ConsumeService returns and pops the head of the service queue only if its
// UniID matches uniID; otherwise it returns (Package{}, false, nil) without
// popping, preserving FIFO order for every other waiter.
func (b *Broker) ConsumeService(uniID [16]byte) (Package, bool, error) {
	var pkg Package
	var found bool

	err := withRetry(func() bool {
		if !b.service.tryLock() {
			return false
		}
		defer b.service.mu.Unlock()

		if len(b.service.items) == 0 {
			return true
		}
		if b.service.items[0].UniID != uniID {
			return true
		}

		pkg = b.service.items[0]
		b.service.items = b.service.items[1:]
		found = true
		return true
	})

	return pkg, found, err
}
