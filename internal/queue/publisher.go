package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends settlement events to a durable queue.  The broker
// connection is opened on first use, shared by all publishes and re-dialed
// after it drops; channels are per publish because they are not safe for
// concurrent use.  A dial never outlives the caller's deadline and never
// holds the lock, and after a failed dial further attempts are skipped for
// RetryAfter so an unreachable broker costs publishers nothing.
type Publisher struct {
    url   string
    queue string
    log   *slog.Logger

    DialTimeout time.Duration // upper bound when ctx has no earlier deadline
    RetryAfter  time.Duration

    mu       sync.Mutex
    conn     *amqp.Connection
    nextDial time.Time
}

var errBrokerBackoff = errors.New("broker unreachable, dial suppressed")

func NewPublisher(url, queue string, log *slog.Logger) *Publisher {
    return &Publisher{url: url, queue: queue, log: log, DialTimeout: 2 * time.Second, RetryAfter: 5 * time.Second}
}

func (p *Publisher) connection(ctx context.Context) (*amqp.Connection, error) {
    p.mu.Lock()
    if p.conn != nil && !p.conn.IsClosed() {
        conn := p.conn
        p.mu.Unlock()
        return conn, nil
    }
    if time.Now().Before(p.nextDial) {
        p.mu.Unlock()
        return nil, errBrokerBackoff
    }
    p.mu.Unlock()

    timeout := p.DialTimeout
    if dl, ok := ctx.Deadline(); ok {
        if left := time.Until(dl); left < timeout {
            timeout = left
        }
    }
    if timeout <= 0 {
        return nil, fmt.Errorf("dial broker: %w", context.DeadlineExceeded)
    }
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Dial:      amqp.DefaultDial(timeout),
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
    })

    p.mu.Lock()
    defer p.mu.Unlock()
    if err != nil {
        p.nextDial = time.Now().Add(p.RetryAfter)
        return nil, fmt.Errorf("dial broker: %w", err)
    }
    if p.conn != nil && !p.conn.IsClosed() {
        // a concurrent publish connected first
        _ = conn.Close()
        return p.conn, nil
    }
    p.conn = conn
    return conn, nil
}

// PublishBookingPaid publishes ev as a persistent JSON message.  Errors are
// logged and returned; callers treat them as non-fatal.
func (p *Publisher) PublishBookingPaid(ctx context.Context, ev BookingPaidEvent) error {
    if err := p.publish(ctx, ev); err != nil {
        p.log.Warn("publish booking.paid failed", "booking_id", ev.BookingID, "error", err)
        return err
    }
    return nil
}

func (p *Publisher) publish(ctx context.Context, ev BookingPaidEvent) error {
    conn, err := p.connection(ctx)
    if err != nil {
        return err
    }
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    return ch.PublishWithContext(ctx,
        "",      // default exchange
        p.queue, // routing key = queue name
        false,
        false,
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            MessageId:    ev.EventID,
            Timestamp:    time.Now().UTC(),
            Body:         body,
        })
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil || p.conn.IsClosed() {
        return nil
    }
    return p.conn.Close()
}
