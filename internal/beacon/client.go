package beacon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Client publishes Atlas lifecycle events. Every publisher is typed so a
// payload can never go out on the wrong subject.
type Client interface {
	DatasetImported(ev DatasetImportedEvent) error
	DatasetUpdated(ev DatasetImportedEvent) error
	MappingSaved(ev MappingSavedEvent) error
	ModelTrained(ev ModelTrainedEvent) error
	ResultComputed(ev ResultComputedEvent) error
	Subscribe(subject string, handler func(subject string, data []byte)) error
	Close()
}

type NATSClient struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	subs   []*nats.Subscription
	logger *slog.Logger
}

var _ Client = (*NATSClient)(nil)

func NewNATSClient(ctx context.Context, url string, logger *slog.Logger) (*NATSClient, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	c := &NATSClient{conn: nc, js: js, logger: logger}
	if err := c.ensureStream(ctx); err != nil {
		logger.Warn("failed to ensure stream", "error", err)
	}
	return c, nil
}

func (c *NATSClient) ensureStream(ctx context.Context) error {
	maxAge, _ := time.ParseDuration(StreamMaxAge)
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"atlas.dataset.>", "atlas.model.>", "atlas.result.>"},
		MaxAge:   maxAge,
	})
	return err
}

func (c *NATSClient) DatasetImported(ev DatasetImportedEvent) error {
	return c.publish(SubjectDatasetImported(ev.DatasetID), ev)
}

func (c *NATSClient) DatasetUpdated(ev DatasetImportedEvent) error {
	return c.publish(SubjectDatasetUpdated(ev.DatasetID), ev)
}

func (c *NATSClient) MappingSaved(ev MappingSavedEvent) error {
	return c.publish(SubjectMappingSaved(ev.DatasetID), ev)
}

func (c *NATSClient) ModelTrained(ev ModelTrainedEvent) error {
	return c.publish(SubjectModelTrained(ev.ModelID), ev)
}

func (c *NATSClient) ResultComputed(ev ResultComputedEvent) error {
	return c.publish(SubjectResultComputed(ev.ResultID), ev)
}

func (c *NATSClient) publish(subject string, ev interface{}) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.conn.Publish(subject, payload)
}

func (c *NATSClient) Subscribe(subject string, handler func(string, []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return err
	}
	c.subs = append(c.subs, sub)
	return nil
}

func (c *NATSClient) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
