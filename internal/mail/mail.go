// Package mail publishes verification mail events. Delivery itself is done by
// the mail worker consuming the topic.
package mail

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"luminix/internal/domain"
)

// VerificationMail asks the mail worker to send a one-time sign-in code.
type VerificationMail struct {
	To        string    `json:"to"`
	From      string    `json:"from,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Publisher interface {
	SendVerification(ctx context.Context, m VerificationMail) error
	Close() error
}

type Config struct {
	Broker   string
	Topic    string
	Username string
	Password string
	From     string
	// LogCodes prints the code itself when no broker is set. Off by default.
	LogCodes bool
}

// New returns a Kafka publisher, or a log-only publisher when no broker is configured.
func New(cfg Config, logger *log.Logger) Publisher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.Broker == "" {
		logger.Printf("mail: WARNING no broker configured, verification mails are not delivered (log_codes=%t)", cfg.LogCodes)
		return &LogPublisher{logger: logger, from: cfg.From, logCodes: cfg.LogCodes}
	}
	return NewKafkaPublisher(cfg)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	from   string
}

func NewKafkaPublisher(cfg Config) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Broker),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	if cfg.Username != "" {
		w.Transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: cfg.Username, Password: cfg.Password},
			TLS:  &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	return &KafkaPublisher{writer: w, from: cfg.From}
}

func (p *KafkaPublisher) SendVerification(ctx context.Context, m VerificationMail) error {
	if m.From == "" {
		m.From = p.from
	}
	value, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal verification mail: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.To),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("verification_code")},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: publish verification mail: %v", domain.ErrUpstream, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher writes the mail to the log. For local development only.
type LogPublisher struct {
	logger   *log.Logger
	from     string
	logCodes bool
}

func (p *LogPublisher) SendVerification(_ context.Context, m VerificationMail) error {
	code := "[redacted]"
	if p.logCodes {
		code = m.Code
	}
	p.logger.Printf("mail: verification to=%s code=%s expires_at=%s", m.To, code, m.ExpiresAt.Format(time.RFC3339))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
