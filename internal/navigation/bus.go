package navigation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// DefaultSubject is the NATS subject carrying navigation requests.
const DefaultSubject = "map.snapTo"

const (
	reconnectWait = 2 * time.Second
	flushTimeout  = 2 * time.Second
)

// Bus relays navigation requests between processes over core NATS.
// Requests are fire-and-forget, so no JetStream persistence is involved.
type Bus struct {
	conn    *nats.Conn
	subject string
	subs    []*nats.Subscription
	log     *logrus.Entry
}

// Dial connects to the NATS server at url.
func Dial(url, subject string) (*Bus, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url,
		nats.Name("mapview"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Bus{conn: conn, subject: subject, log: logrus.WithField("subject", subject)}, nil
}

// Publish sends req on the bus subject and waits for the server to acknowledge the flush.
func (b *Bus) Publish(req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return b.conn.FlushTimeout(flushTimeout)
}

// Forward emits every well-formed request received on the bus subject into sig.
func (b *Bus) Forward(sig *Signal) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		req, err := DecodeRequest(msg.Data)
		if err != nil {
			b.log.WithError(err).Warn("dropping malformed navigation request")
			return
		}
		if !sig.Emit(req) {
			b.log.Debug("no map mounted; navigation request dropped")
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

// Close unsubscribes and drains the connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil
	if err := b.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		b.log.WithError(err).Debug("nats drain")
	}
}

// DecodeRequest parses and validates a JSON {"lat":..,"lng":..} payload.
func DecodeRequest(data []byte) (Request, error) {
	var raw struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Request{}, fmt.Errorf("decode navigation request: %w", err)
	}
	if raw.Lat == nil || raw.Lng == nil {
		return Request{}, errors.New("decode navigation request: lat and lng are required")
	}
	req := Request{Latitude: *raw.Lat, Longitude: *raw.Lng}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}
