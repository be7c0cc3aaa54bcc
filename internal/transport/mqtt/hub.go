// Package mqtt adapts the engine's ingestion/publication surface (spec §6
// external interfaces) onto an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// HubConfig configures the broker connection and topic namespace.
type HubConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Ingestor receives the three external input streams (spec §6). Hub does
// not interpret payloads itself; it parses the wire shape and hands the
// decoded message to the engine runtime.
type Ingestor interface {
	IngestAffect(ctx context.Context, msg AffectMessage)
	IngestUtterance(ctx context.Context, msg UtteranceMessage)
	IngestTokens(ctx context.Context, msg TokenMessage)
}

// Hub owns the MQTT client and wires it to an Ingestor for inputs and to
// direct Publish* calls for outputs.
type Hub struct {
	cfg      HubConfig
	client   paho.Client
	ingestor Ingestor
	logger   *slog.Logger
}

// NewHub builds a Hub bound to the given ingestor; publication is driven
// separately via PublishState/PublishSnapshot/PublishDecision/
// PublishConsciousness once Start has connected the client.
func NewHub(cfg HubConfig, ingestor Ingestor, logger *slog.Logger) *Hub {
	return &Hub{cfg: cfg, ingestor: ingestor, logger: logger}
}

// Start connects to the broker, subscribes the three input topics, and
// disconnects cleanly when ctx is cancelled.
func (h *Hub) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(h.cfg.BrokerURL).
		SetClientID(h.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if h.cfg.Username != "" {
		opts.SetUsername(h.cfg.Username)
		opts.SetPassword(h.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		h.logger.Error("mqtt connection lost", "error", err)
	})

	h.client = paho.NewClient(opts)
	if token := h.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	if err := h.subscribeHandlers(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		h.client.Disconnect(100)
	}()

	return nil
}

func (h *Hub) subscribeHandlers() error {
	if token := h.client.Subscribe(TopicAffectIn(h.cfg.TopicPrefix), 1, h.handleAffect); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := h.client.Subscribe(TopicUtteranceIn(h.cfg.TopicPrefix), 1, h.handleUtterance); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := h.client.Subscribe(TopicTokensIn(h.cfg.TopicPrefix), 1, h.handleTokens); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (h *Hub) handleAffect(_ paho.Client, msg paho.Message) {
	var payload AffectMessage
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		h.logger.Warn("invalid affect payload", "error", err)
		return
	}
	h.ingestor.IngestAffect(context.Background(), payload)
}

func (h *Hub) handleUtterance(_ paho.Client, msg paho.Message) {
	var payload UtteranceMessage
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		h.logger.Warn("invalid utterance payload", "error", err)
		return
	}
	h.ingestor.IngestUtterance(context.Background(), payload)
}

func (h *Hub) handleTokens(_ paho.Client, msg paho.Message) {
	var payload TokenMessage
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		h.logger.Warn("invalid token payload", "error", err)
		return
	}
	h.ingestor.IngestTokens(context.Background(), payload)
}

// publish marshals v and publishes it at-least-once on topic; transport
// failures are logged and absorbed rather than propagated, per spec §7's
// "external-I/O errors are absorbed at the adapter layer" policy.
func (h *Hub) publish(topic string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("marshal publish payload", "topic", topic, "error", err)
		return
	}
	token := h.client.Publish(topic, 1, false, body)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			h.logger.Error("publish failed", "topic", topic, "error", token.Error())
		}
	}()
}

// PublishState emits the per-tick state publication.
func (h *Hub) PublishState(msg StateMessage) {
	h.publish(TopicStateOut(h.cfg.TopicPrefix), msg)
}

// PublishSnapshot emits the periodic word-affect graph snapshot.
func (h *Hub) PublishSnapshot(msg SnapshotMessage) {
	h.publish(TopicSnapshotOut(h.cfg.TopicPrefix), msg)
}

// PublishDecision emits a decision engine result.
func (h *Hub) PublishDecision(v any) {
	h.publish(TopicDecisionOut(h.cfg.TopicPrefix), v)
}

// PublishConsciousness emits a consciousness/sentiment snapshot.
func (h *Hub) PublishConsciousness(msg ConsciousnessMessage) {
	h.publish(TopicConsciousnessOut(h.cfg.TopicPrefix), msg)
}
