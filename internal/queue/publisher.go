package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// StageQueueName is the durable queue carrying StageRecordedEvent messages.
const StageQueueName = "crop.stage.recorded"

// defaultDialTimeout bounds dialing when the caller's context has no
// deadline.
const defaultDialTimeout = 3 * time.Second

// Publisher sends stage events to RabbitMQ.  It keeps one connection open
// and redials lazily after the broker drops it.  Every call is bounded by
// its context: waiting for the connection, dialing and the AMQP handshake
// all give up at the deadline.
type Publisher struct {
    url string

    lock chan struct{} // one slot; guards conn and ch
    conn *amqp.Connection
    ch   *amqp.Channel
}

func NewPublisher(url string) *Publisher {
    return &Publisher{url: url, lock: make(chan struct{}, 1)}
}

func (p *Publisher) acquire(ctx context.Context) error {
    select {
    case p.lock <- struct{}{}:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}

func (p *Publisher) release() { <-p.lock }

// channel returns an open channel, dialing and declaring the queue when
// needed.  Callers hold the lock.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()

    timeout := defaultDialTimeout
    if dl, ok := ctx.Deadline(); ok {
        timeout = time.Until(dl)
    }
    if timeout <= 0 {
        return nil, context.DeadlineExceeded
    }
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    })
    if err != nil {
        return nil, fmt.Errorf("dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("channel open: %w", err)
    }
    // durable so stage events survive a broker restart
    if _, err := ch.QueueDeclare(
        StageQueueName, // name
        true,           // durable
        false,          // autoDelete
        false,          // exclusive
        false,          // noWait
        nil,            // args
    ); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, fmt.Errorf("queue declare: %w", err)
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// PublishStageRecorded publishes ev as a persistent JSON message.
func (p *Publisher) PublishStageRecorded(ctx context.Context, ev StageRecordedEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    if err := p.acquire(ctx); err != nil {
        log.Printf("rabbitmq: publish %s: %v", ev.CropID, err)
        return err
    }
    defer p.release()

    ch, err := p.channel(ctx)
    if err != nil {
        log.Printf("rabbitmq: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",             // default exchange
        StageQueueName, // routing key = queue name
        false,          // mandatory
        false,          // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        p.reset()
        return err
    }
    return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    p.lock <- struct{}{}
    defer p.release()
    p.reset()
    return nil
}
