// Package realtime fans committed transactions out to live viewers.
package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Subscriber menerima event lewat C. C ditutup kalau subscriber terlalu
// lambat, antrian broadcast hub sempat penuh, atau hub berhenti; viewer
// harus ambil snapshot lagi.
type Subscriber struct {
	ID uint64
	C  <-chan Event

	ch chan Event
}

type Hub struct {
	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan Event
	overflow   chan struct{}
	clients    map[*Subscriber]bool

	seq     atomic.Uint64
	nextID  atomic.Uint64
	buffer  int
	log     *logrus.Entry
	done    chan struct{}
	stopped sync.Once
}

const inboxSize = 1024

// NewHub - buffer adalah antrian per subscriber
func NewHub(buffer int, logger *logrus.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		broadcast:  make(chan Event, inboxSize),
		overflow:   make(chan struct{}, 1),
		clients:    make(map[*Subscriber]bool),
		buffer:     buffer,
		log:        logger.WithField("component", "hub"),
		done:       make(chan struct{}),
	}
}

// Run harus jalan di satu goroutine. Berhenti saat ctx selesai dan menutup
// semua subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer h.stopped.Do(func() { close(h.done) })

	for {
		// overflow didahulukan supaya tidak ada subscriber lama yang lanjut
		// menerima event setelah lubang seq
		select {
		case <-h.overflow:
			h.dropAll()
			continue
		default:
		}

		select {
		case <-h.overflow:
			h.dropAll()

		case s := <-h.register:
			h.clients[s] = true
			h.log.WithField("client", s.ID).Debugf("subscriber masuk, total: %d", len(h.clients))

		case s := <-h.unregister:
			if h.clients[s] {
				delete(h.clients, s)
				close(s.ch)
			}

		case ev := <-h.broadcast:
			for s := range h.clients {
				select {
				case s.ch <- ev:
				default:
					// buffer penuh, putus supaya publisher tidak ikut tertahan
					delete(h.clients, s)
					close(s.ch)
					h.log.WithFields(logrus.Fields{"client": s.ID, "seq": ev.Seq}).
						Warn("subscriber terlalu lambat, diputus")
				}
			}

		case <-ctx.Done():
			for s := range h.clients {
				delete(h.clients, s)
				close(s.ch)
			}
			return
		}
	}
}

// dropAll - semua subscriber yang ada sudah ketinggalan event, putus
// supaya reconnect dan ambil snapshot
func (h *Hub) dropAll() {
	for s := range h.clients {
		delete(h.clients, s)
		close(s.ch)
	}
	h.log.Warn("antrian broadcast sempat penuh, semua subscriber diputus")
}

// Publish tidak pernah blocking. Urutan seq = urutan panggilan Publish,
// jadi pemanggil yang sudah serial (commit) menghasilkan urutan yang sama.
func (h *Hub) Publish(eventType string, data any) Event {
	ev := Event{
		Version: EventVersion,
		Type:    eventType,
		Seq:     h.seq.Add(1),
		Data:    data,
	}

	select {
	case h.broadcast <- ev:
	default:
		h.log.WithFields(logrus.Fields{"seq": ev.Seq, "type": eventType}).
			Error("antrian broadcast penuh, event dibuang")
		select {
		case h.overflow <- struct{}{}:
		default:
		}
	}
	return ev
}

// Seq - nomor event terakhir yang sudah dipublish
func (h *Hub) Seq() uint64 {
	return h.seq.Load()
}

// Subscribe returns nil when the hub is no longer running.
func (h *Hub) Subscribe() *Subscriber {
	ch := make(chan Event, h.buffer)
	s := &Subscriber{ID: h.nextID.Add(1), C: ch, ch: ch}

	select {
	case h.register <- s:
		return s
	case <-h.done:
		return nil
	}
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}
