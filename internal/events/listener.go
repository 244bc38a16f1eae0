package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Message headers the identity manager tags its events with.
const (
	HeaderTenant    = "tenant"
	HeaderOperation = "operation"
)

// ApplicationSignatureEvent is the payload of an application-signature-set
// acknowledgment.
type ApplicationSignatureEvent struct {
	ApplicationIdentifier string `json:"applicationIdentifier"`
	Timestamp             string `json:"timestamp"`
}

// signatureCorrelation renders the correlation half of a signature event key.
func signatureCorrelation(application, timestamp string) string {
	return application + "/" + timestamp
}

// ExpectPermittableGroupCreated registers for the creation acknowledgment of
// one permittable group.
func (r *Registry) ExpectPermittableGroupCreated(tenant, groupID string) *Expectation {
	return r.Expect(Key{Tenant: tenant, Operation: OperationPermittableGroupCreated, Correlation: groupID})
}

// ExpectApplicationSignatureSet registers for the acknowledgment of one
// application signature push.
func (r *Registry) ExpectApplicationSignatureSet(tenant, application, timestamp string) *Expectation {
	return r.Expect(Key{
		Tenant:      tenant,
		Operation:   OperationApplicationSignatureSet,
		Correlation: signatureCorrelation(application, timestamp),
	})
}

// ListenerConfig configures the identity event consumer.
type ListenerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

func (c *ListenerConfig) ApplyDefaults() {
	if c.Topic == "" {
		c.Topic = "identity-v1-events"
	}
	if c.GroupID == "" {
		c.GroupID = "provisioner"
	}
}

// Listener consumes identity events from the bus and signals the registry.
type Listener struct {
	reader   *kafka.Reader
	registry *Registry
}

func NewListener(cfg ListenerConfig, registry *Registry) *Listener {
	cfg.ApplyDefaults()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.LastOffset,
	})

	return &Listener{reader: reader, registry: registry}
}

// Run consumes messages until the context is canceled, reconnecting with
// exponential backoff on read failures.
func (l *Listener) Run(ctx context.Context) error {
	defer l.reader.Close()

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 30 * time.Second

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}

			wait := bo.NextBackOff()
			log.Error().Err(err).Dur("retry_in", wait).Msg("Failed to read identity event")

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()

		l.dispatch(msg)
	}
}

func (l *Listener) dispatch(msg kafka.Message) {
	var tenant, operation string
	for _, header := range msg.Headers {
		switch header.Key {
		case HeaderTenant:
			tenant = string(header.Value)
		case HeaderOperation:
			operation = string(header.Value)
		}
	}

	if tenant == "" || operation == "" {
		log.Debug().Msg("Dropping identity event without tenant/operation headers")
		return
	}

	key, err := eventKey(tenant, operation, msg.Value)
	if err != nil {
		log.Warn().Err(err).Str("operation", operation).Msg("Dropping malformed identity event")
		return
	}

	if !l.registry.Signal(key) {
		log.Debug().
			Str("tenant", tenant).
			Str("operation", operation).
			Str("correlation", key.Correlation).
			Msg("Identity event matched no expectation")
	}
}

func eventKey(tenant, operation string, payload []byte) (Key, error) {
	switch operation {
	case OperationApplicationSignatureSet:
		var event ApplicationSignatureEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return Key{}, fmt.Errorf("invalid signature event payload: %w", err)
		}
		return Key{
			Tenant:      tenant,
			Operation:   operation,
			Correlation: signatureCorrelation(event.ApplicationIdentifier, event.Timestamp),
		}, nil

	default:
		// Other acknowledgments carry their correlation id as a JSON string.
		var correlation string
		if err := json.Unmarshal(payload, &correlation); err != nil {
			correlation = string(payload)
		}
		return Key{Tenant: tenant, Operation: operation, Correlation: correlation}, nil
	}
}
