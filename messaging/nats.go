// Package messaging publishes blog activity events to NATS.
package messaging

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/utils"
)

const (
	SubjectPostCreated    = "blog.post.created"
	SubjectPostDeleted    = "blog.post.deleted"
	SubjectCommentCreated = "blog.comment.created"
)

// Publisher sends an event payload on a subject.
type Publisher interface {
	Publish(subject string, v interface{}) error
	Close()
}

// New connects to cfg.NATSURL. Without a URL events are dropped silently.
func New(cfg config.AppConfig) (Publisher, error) {
	if cfg.NATSURL == "" {
		return Nop{}, nil
	}
	closed := make(chan struct{})
	var once sync.Once
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("blogicum"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ClosedHandler(func(*nats.Conn) { once.Do(func() { close(closed) }) }),
	)
	if err != nil {
		return nil, err
	}
	utils.Logger.Info("NATS connected", zap.String("url", conn.ConnectedUrl()))
	return &NATSPublisher{conn: conn, closed: closed}, nil
}

const (
	flushTimeout = 5 * time.Second
	drainTimeout = 10 * time.Second
)

type NATSPublisher struct {
	conn   *nats.Conn
	closed chan struct{}
}

func (p *NATSPublisher) Publish(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, data)
}

// Close flushes pending events and blocks until the drained connection is closed.
func (p *NATSPublisher) Close() {
	if err := p.conn.FlushTimeout(flushTimeout); err != nil {
		utils.Logger.Warn("NATS flush failed", zap.Error(err))
	}
	if !drainAndWait(p.conn.Drain, p.closed, drainTimeout, p.conn.Close) {
		utils.Logger.Warn("NATS drain did not finish", zap.Duration("timeout", drainTimeout))
	}
}

// drainAndWait starts drain and waits for closed. A failed or timed out drain
// falls back to force. It reports whether the drain completed.
func drainAndWait(drain func() error, closed <-chan struct{}, timeout time.Duration, force func()) bool {
	if err := drain(); err != nil {
		utils.Logger.Warn("NATS drain failed", zap.Error(err))
		force()
		return false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-closed:
		return true
	case <-timer.C:
		force()
		return false
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(string, interface{}) error { return nil }
func (Nop) Close()                             {}

// Event payloads

type PostCreatedEvent struct {
	PostID    uint   `json:"post_id"`
	AuthorID  uint   `json:"author_id"`
	Title     string `json:"title"`
	PubDate   string `json:"pub_date"`
	Timestamp string `json:"timestamp"`
}

type PostDeletedEvent struct {
	PostID    uint   `json:"post_id"`
	AuthorID  uint   `json:"author_id"`
	Timestamp string `json:"timestamp"`
}

type CommentCreatedEvent struct {
	CommentID uint   `json:"comment_id"`
	PostID    uint   `json:"post_id"`
	AuthorID  uint   `json:"author_id"`
	Timestamp string `json:"timestamp"`
}

// Emit publishes v and logs failures; events never fail the request that produced them.
func Emit(p Publisher, subject string, v interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(subject, v); err != nil {
		utils.Logger.Warn("publish event failed", zap.String("subject", subject), zap.Error(err))
	}
}

// Now formats the event timestamp.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
