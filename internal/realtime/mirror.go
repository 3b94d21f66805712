package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// EventPublisher - tujuan mirror event di luar proses
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev Event) error
}

// AMQPPublisher - kirim event ke fanout exchange RabbitMQ
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange %q: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) PublishEvent(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    strconv.FormatUint(ev.Seq, 10),
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Headers: amqp.Table{
			"x-source": "backend-kantin",
		},
		Body: body,
	})
}

func (p *AMQPPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Mirror - subscriber hub yang meneruskan event ke broker. Gagal kirim
// hanya di-log; transaksi yang sudah commit tidak terpengaruh.
type Mirror struct {
	hub *Hub
	pub EventPublisher
	log *logrus.Entry
}

func NewMirror(hub *Hub, pub EventPublisher, logger *logrus.Logger) *Mirror {
	return &Mirror{hub: hub, pub: pub, log: logger.WithField("component", "mirror")}
}

func (m *Mirror) Run(ctx context.Context) {
	for ctx.Err() == nil {
		sub := m.hub.Subscribe()
		if sub == nil {
			return
		}
		m.forward(ctx, sub)
		m.hub.Unsubscribe(sub)
		if ctx.Err() == nil {
			m.log.Warn("mirror tertinggal dan diputus hub, subscribe ulang")
		}
	}
}

func (m *Mirror) forward(ctx context.Context, sub *Subscriber) {
	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := m.pub.PublishEvent(sendCtx, ev); err != nil {
				m.log.WithError(err).WithField("seq", ev.Seq).Error("gagal mirror event ke broker")
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}
}
