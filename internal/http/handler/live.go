package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"backend-kantin/internal/models"
	"backend-kantin/internal/realtime"
)

/*
|--------------------------------------------------------------------------
| Snapshot + subscribe
|--------------------------------------------------------------------------
| Viewer subscribe dulu baru ambil snapshot. Event dengan seq <= snapshot.Seq
| sudah ada di snapshot, jadi dilewati.
*/

func snapshotEvent(snap models.Snapshot) realtime.Event {
	return realtime.Event{
		Version: realtime.EventVersion,
		Type:    realtime.TypeSnapshot,
		Seq:     snap.Seq,
		Data:    snap,
	}
}

func (h *Handler) subscribeWithSnapshot(c *fiber.Ctx) (*realtime.Subscriber, models.Snapshot, error) {
	sub := h.hub.Subscribe()
	if sub == nil {
		return nil, models.Snapshot{}, fiber.NewError(fiber.StatusServiceUnavailable, "live feed tidak aktif")
	}
	snap, err := h.svc.Snapshot(c.UserContext())
	if err != nil {
		h.hub.Unsubscribe(sub)
		return nil, models.Snapshot{}, err
	}
	return sub, snap, nil
}

/*
|--------------------------------------------------------------------------
| SSE
|--------------------------------------------------------------------------
*/

func (h *Handler) Stream(c *fiber.Ctx) error {
	sub, snap, err := h.subscribeWithSnapshot(c)
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		return h.fail(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	entry := h.log.WithFields(logrus.Fields{"client": sub.ID, "transport": "sse"})
	entry.Debug("viewer sse masuk")

	keepAlive := h.keepAlive
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.hub.Unsubscribe(sub)
		defer entry.Debug("viewer sse keluar")

		if err := writeFrame(w, snapshotEvent(snap)); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-sub.C:
				if !ok {
					// terlalu lambat atau hub berhenti, client harus reconnect
					return
				}
				if ev.Seq <= snap.Seq {
					continue
				}
				if err := writeFrame(w, ev); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeFrame(w *bufio.Writer, ev realtime.Event) error {
	frame, err := ev.Frame()
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	return w.Flush()
}

/*
|--------------------------------------------------------------------------
| WebSocket
|--------------------------------------------------------------------------
*/

type liveClient struct {
	conn      *websocket.Conn
	writeMux  sync.Mutex
	closeChan chan struct{}
	closed    bool
	id        string
}

func (lc *liveClient) write(message []byte) error {
	lc.writeMux.Lock()
	defer lc.writeMux.Unlock()

	if lc.closed {
		return websocket.ErrCloseSent
	}
	lc.conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	return lc.conn.WriteMessage(websocket.TextMessage, message)
}

func (lc *liveClient) ping() error {
	lc.writeMux.Lock()
	defer lc.writeMux.Unlock()

	if lc.closed {
		return websocket.ErrCloseSent
	}
	lc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return lc.conn.WriteMessage(websocket.PingMessage, nil)
}

func (lc *liveClient) close() {
	lc.writeMux.Lock()
	if !lc.closed {
		lc.closed = true
		close(lc.closeChan)
	}
	lc.writeMux.Unlock()
	_ = lc.conn.Close()
}

// UpgradeWebSocket - tolak request biasa ke /ws
func UpgradeWebSocket(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// LiveWebSocket - snapshot dulu, lalu event satu per satu sesuai urutan commit
func (h *Handler) LiveWebSocket() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		sub := h.hub.Subscribe()
		if sub == nil {
			_ = c.Close()
			return
		}
		defer h.hub.Unsubscribe(sub)

		client := &liveClient{
			conn:      c,
			closeChan: make(chan struct{}),
			id:        fmt.Sprintf("client-%d", sub.ID),
		}
		defer client.close()

		entry := h.log.WithFields(logrus.Fields{"client": client.id, "transport": "ws"})
		entry.Infof("viewer connect dari %s", c.RemoteAddr())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		snap, err := h.svc.Snapshot(ctx)
		cancel()
		if err != nil {
			entry.WithError(err).Error("gagal ambil snapshot")
			return
		}
		if err := writeEvent(client, snapshotEvent(snap)); err != nil {
			entry.WithError(err).Warn("gagal kirim snapshot")
			return
		}

		c.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.SetPongHandler(func(string) error {
			c.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		go h.pump(client, sub, snap.Seq, entry)

		// Read loop
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
					websocket.CloseNormalClosure,
				) {
					entry.WithError(err).Warn("viewer close tidak normal")
				} else {
					entry.Info("viewer close")
				}
				return
			}
		}
	})
}

// pump - kirim event hub + ping setiap pingInterval sampai client tutup
func (h *Handler) pump(client *liveClient, sub *realtime.Subscriber, after uint64, entry *logrus.Entry) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				entry.Warn("viewer tertinggal, diputus")
				client.close()
				return
			}
			if ev.Seq <= after {
				continue
			}
			if err := writeEvent(client, ev); err != nil {
				entry.WithError(err).Warn("write error")
				client.close()
				return
			}
		case <-ticker.C:
			if err := client.ping(); err != nil {
				entry.WithError(err).Warn("ping error")
				client.close()
				return
			}
		case <-client.closeChan:
			return
		}
	}
}

func writeEvent(client *liveClient, ev realtime.Event) error {
	message, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return client.write(message)
}
