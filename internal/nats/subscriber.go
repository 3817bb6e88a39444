package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"polyglot-service/internal/health"
	"polyglot-service/internal/services"
)

const (
	sosStreamName = "SOS_EVENTS"
	sosSubject    = "sos.>"
	sosQueue      = "polyglot-service-workers"
	sosDurable    = "polyglot-service-sos"
)

// SOSEvent is the payload published by the bot gateway when a member
// triggers an emergency broadcast (slash command or alert reaction).
type SOSEvent struct {
	GuildID    string `json:"guild_id"`
	SenderID   string `json:"sender_id"`
	ChannelID  string `json:"channel_id,omitempty"`
	Text       string `json:"text"`
	SourceLang string `json:"source_lang,omitempty"`
	Origin     string `json:"origin,omitempty"`
}

// Subscriber consumes SOS events from JetStream and hands them to the
// broadcaster. Events are queue-balanced across service replicas.
type Subscriber struct {
	client      *Client
	broadcaster *services.Broadcaster
	logger      *logrus.Entry
	subs        []*nats.Subscription
}

// NewSubscriber creates a subscriber bound to the shared NATS client.
func NewSubscriber(client *Client, broadcaster *services.Broadcaster, logger *logrus.Entry) *Subscriber {
	return &Subscriber{
		client:      client,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// ensureStream creates the SOS stream if it doesn't exist.
func (s *Subscriber) ensureStream() error {
	js := s.client.JetStream()

	_, err := js.StreamInfo(sosStreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      sosStreamName,
		Subjects:  []string{sosSubject},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		MaxMsgs:   100000,
		Discard:   nats.DiscardOld,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return err
	}

	s.logger.WithField("stream", sosStreamName).Info("Created JetStream stream")
	return nil
}

// Start ensures the stream exists and begins consuming SOS events.
func (s *Subscriber) Start() error {
	if err := s.ensureStream(); err != nil {
		return err
	}

	// AckWait must outlast the broadcast fan-out deadline so in-flight
	// work isn't redelivered to another replica.
	sub, err := s.client.JetStream().QueueSubscribe(
		sosSubject,
		sosQueue,
		s.handleSOSEvent,
		nats.BindStream(sosStreamName),
		nats.Durable(sosDurable),
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.AckWait(60*time.Second),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)

	s.logger.WithFields(logrus.Fields{
		"stream":  sosStreamName,
		"subject": sosSubject,
		"queue":   sosQueue,
	}).Info("Subscribed to SOS events")
	return nil
}

// Stop drains all subscriptions.
func (s *Subscriber) Stop() {
	for _, sub := range s.subs {
		if err := sub.Drain(); err != nil {
			s.logger.WithError(err).Warn("Error draining subscription")
		}
	}
	s.logger.Info("SOS subscriber stopped")
}

// handleSOSEvent runs one broadcast per event. Malformed or invalid
// events are acked immediately so they don't poison the queue; transient
// broadcast failures are left unacked for bounded redelivery.
func (s *Subscriber) handleSOSEvent(msg *nats.Msg) {
	var event SOSEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		s.logger.WithError(err).WithField("subject", msg.Subject).Warn("Dropping malformed SOS event")
		msg.Ack()
		return
	}

	if event.GuildID == "" || event.Text == "" {
		s.logger.WithFields(logrus.Fields{
			"subject":  msg.Subject,
			"guild_id": event.GuildID,
		}).Warn("Dropping SOS event without guild or text")
		msg.Ack()
		return
	}

	origin := event.Origin
	if origin == "" {
		origin = "event"
	}

	// The broadcaster applies its own fan-out deadline.
	report, err := s.broadcaster.Broadcast(context.Background(), services.BroadcastInput{
		GuildID:    event.GuildID,
		SenderID:   event.SenderID,
		ChannelID:  event.ChannelID,
		Origin:     origin,
		SourceText: event.Text,
		SourceLang: event.SourceLang,
	})
	if err != nil {
		if errors.Is(err, services.ErrBroadcastsDisabled) {
			s.logger.WithField("guild_id", event.GuildID).Info("SOS event ignored, broadcasts disabled for guild")
			health.RecordBroadcast(false)
			msg.Ack()
			return
		}
		s.logger.WithError(err).WithField("guild_id", event.GuildID).Error("SOS broadcast failed, leaving for redelivery")
		health.RecordBroadcast(false)
		return
	}

	health.RecordBroadcast(true)
	health.RecordBroadcastDeliveries(report.Sent, report.DMFailed, report.TranslationFallback, report.Skipped)

	s.logger.WithFields(logrus.Fields{
		"guild_id":    event.GuildID,
		"origin":      origin,
		"recipients":  report.Recipients,
		"sent":        report.Sent,
		"dm_failed":   report.DMFailed,
		"fallback":    report.TranslationFallback,
		"skipped":     report.Skipped,
		"duration_ms": report.DurationMs,
	}).Info("Processed SOS event")
	msg.Ack()
}
