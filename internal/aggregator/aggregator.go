// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/marathon/internal/cache"
	"github.com/tomtom215/marathon/internal/eventprocessor"
	"github.com/tomtom215/marathon/internal/logging"
	"github.com/tomtom215/marathon/internal/metrics"
	"github.com/tomtom215/marathon/internal/models"
	"github.com/tomtom215/marathon/internal/validation"
)

// Poison reasons, used as the metrics label and the reason metadata.
const (
	ReasonDecode          = "decode"
	ReasonInvalid         = "invalid"
	ReasonForeignMarathon = "foreign_marathon"
)

// Metadata set on messages republished to the poison topic.
const (
	MetadataPoisonReason = "poison_reason"
	MetadataPoisonError  = "poison_error"
	MetadataOriginalUUID = "original_uuid"
)

var errSubscriptionClosed = errors.New("subscription closed")

// Broadcaster receives every applied update. Broadcast blocks until the
// update is accepted or ctx ends.
type Broadcaster interface {
	Broadcast(ctx context.Context, update *models.StateUpdate) error
}

// Config configures an Aggregator.
type Config struct {
	MarathonID string
	Topic      string

	// PoisonTopic receives unprocessable messages when PoisonEnabled is set.
	PoisonTopic   string
	PoisonEnabled bool

	RecentActivitySize int

	// DedupWindow is how many applied event ids are remembered.
	DedupWindow int
}

// Aggregator is the single consumer of the reading queue.
type Aggregator struct {
	conn        *eventprocessor.Connection
	cfg         Config
	state       *State
	dedup       *cache.LRUCache
	broadcaster Broadcaster
	store       SnapshotStore
	logger      zerolog.Logger
	now         func() time.Time
}

// New creates an aggregator consuming through conn. broadcaster and store
// may be nil.
func New(conn *eventprocessor.Connection, cfg Config, broadcaster Broadcaster, store SnapshotStore) *Aggregator {
	if cfg.PoisonTopic == "" {
		cfg.PoisonTopic = eventprocessor.PoisonTopic(cfg.Topic)
	}
	return &Aggregator{
		conn:        conn,
		cfg:         cfg,
		state:       NewState(cfg.MarathonID, cfg.RecentActivitySize),
		dedup:       cache.NewLRUCache(cfg.DedupWindow, 0),
		broadcaster: broadcaster,
		store:       store,
		logger:      logging.WithComponent("aggregator").With().Str("marathon_id", cfg.MarathonID).Logger(),
		now:         time.Now,
	}
}

// SetBroadcaster sets the fan-out target. It must be called before Run.
func (a *Aggregator) SetBroadcaster(b Broadcaster) {
	a.broadcaster = b
}

// Connection returns the aggregator's broker connection.
func (a *Aggregator) Connection() *eventprocessor.Connection {
	return a.conn
}

// Restore loads the saved snapshot, if any, seeding the state and the dedup
// window. A missing snapshot is not an error.
func (a *Aggregator) Restore(ctx context.Context) error {
	if a.store == nil {
		return nil
	}

	snap, err := a.store.Load(ctx, a.cfg.MarathonID)
	if errors.Is(err, ErrSnapshotNotFound) {
		a.logger.Info().Msg("no snapshot found, starting from empty state")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	a.state.Restore(snap.State)
	for _, id := range snap.AppliedIDs {
		a.dedup.Add(id)
	}

	restored := a.state.Snapshot()
	metrics.UpdateStateGauges(restored.MarathonID, restored.TotalPagesRead, restored.Sequence, len(restored.ParticipantTotals))
	a.logger.Info().
		Uint64("sequence", restored.Sequence).
		Int64("total_pages", restored.TotalPagesRead).
		Int("event_ids", len(snap.AppliedIDs)).
		Msg("state restored from snapshot")
	return nil
}

// Run consumes the queue until ctx ends or the connection gives up.
func (a *Aggregator) Run(ctx context.Context) error {
	return a.conn.Run(ctx, a.consume)
}

// Snapshot returns a copy of the current state.
func (a *Aggregator) Snapshot() models.MarathonState {
	return a.state.Snapshot()
}

// Leaderboard returns up to limit ranked participants, all when limit <= 0.
func (a *Aggregator) Leaderboard(limit int) []models.LeaderboardEntry {
	return a.state.Leaderboard(limit)
}

// Participant returns one participant's standing.
func (a *Aggregator) Participant(id string) (models.ParticipantView, bool) {
	return a.state.Participant(id)
}

// HealthCheck reports the aggregator's connection health.
func (a *Aggregator) HealthCheck(ctx context.Context) eventprocessor.ComponentHealth {
	h := a.conn.HealthCheck(ctx)
	if h.Details == nil {
		h.Details = map[string]interface{}{}
	}
	h.Details["sequence"] = a.state.Sequence()
	return h
}

func (a *Aggregator) consume(ctx context.Context, session eventprocessor.Session) error {
	sub := session.Subscriber()
	if sub == nil {
		return fmt.Errorf("%w: session cannot subscribe", eventprocessor.ErrQueueUnavailable)
	}

	messages, err := sub.Subscribe(ctx, a.cfg.Topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", a.cfg.Topic, err)
	}
	a.logger.Info().Str("topic", a.cfg.Topic).Msg("consuming readings")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errSubscriptionClosed
			}
			a.handle(ctx, session, msg)
		}
	}
}

// handle processes one delivery. It acks everything except when ctx ends
// before the update was handed to the broadcaster; that message stays
// unacknowledged and is redelivered after reconnecting.
func (a *Aggregator) handle(ctx context.Context, session eventprocessor.Session, msg *message.Message) {
	start := time.Now()
	defer func() { metrics.RecordProcessing(time.Since(start)) }()

	event, reason, err := a.decode(msg)
	if err != nil {
		a.quarantine(session, msg, reason, err)
		msg.Ack()
		return
	}

	if event.EventID != "" && a.dedup.Contains(event.EventID) {
		metrics.RecordDuplicate()
		a.logger.Debug().Str("event_id", event.EventID).Msg("skipping already applied reading")
		msg.Ack()
		return
	}

	update := a.state.Apply(*event)
	if event.EventID != "" {
		a.dedup.Add(event.EventID)
	}
	metrics.RecordApplied(a.cfg.MarathonID, update.State.TotalPagesRead, update.Sequence, len(update.State.ParticipantTotals))

	// The state already moved on; save it even if shutdown has begun.
	a.persist(context.WithoutCancel(ctx), &update)

	if a.broadcaster != nil {
		if err := a.broadcaster.Broadcast(ctx, &update); err != nil {
			if ctx.Err() != nil {
				a.logger.Debug().Uint64("sequence", update.Sequence).Msg("shutdown before ack, reading will be redelivered")
				return
			}
			a.logger.Warn().Err(err).Uint64("sequence", update.Sequence).Msg("broadcast failed")
		}
	}

	msg.Ack()
	a.logger.Debug().
		Str("event_id", event.EventID).
		Str("participant_id", event.ParticipantID).
		Int64("pages_read", event.PagesRead).
		Uint64("sequence", update.Sequence).
		Msg("reading applied")
}

// decode parses and checks a delivery, returning the poison reason on
// failure.
func (a *Aggregator) decode(msg *message.Message) (*models.ReadingEvent, string, error) {
	event, err := eventprocessor.DecodeEvent(msg.Payload)
	if err != nil {
		return nil, ReasonDecode, err
	}

	if verr := validation.ValidateStruct(event); verr != nil {
		return nil, ReasonInvalid, verr
	}

	switch event.MarathonID {
	case "":
		event.MarathonID = a.cfg.MarathonID
	case a.cfg.MarathonID:
	default:
		return nil, ReasonForeignMarathon, fmt.Errorf("reading belongs to marathon %q", event.MarathonID)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = a.now().UTC()
	}
	return event, "", nil
}

func (a *Aggregator) quarantine(session eventprocessor.Session, msg *message.Message, reason string, cause error) {
	metrics.RecordPoison(reason)
	a.logger.Warn().
		Err(fmt.Errorf("%w: %w", eventprocessor.ErrPoisonMessage, cause)).
		Str("message_uuid", msg.UUID).
		Str("reason", reason).
		Msg("discarding unprocessable reading")

	if !a.cfg.PoisonEnabled {
		return
	}
	pub := session.Publisher()
	if pub == nil {
		return
	}

	// A fresh UUID keeps the broker's duplicate window from dropping the copy.
	poisoned := message.NewMessage(watermill.NewUUID(), msg.Payload)
	for k, v := range msg.Metadata {
		poisoned.Metadata.Set(k, v)
	}
	poisoned.Metadata.Set(MetadataOriginalUUID, msg.UUID)
	poisoned.Metadata.Set(MetadataPoisonReason, reason)
	poisoned.Metadata.Set(MetadataPoisonError, cause.Error())

	if err := pub.Publish(a.cfg.PoisonTopic, poisoned); err != nil {
		a.logger.Error().Err(err).Str("topic", a.cfg.PoisonTopic).Msg("failed to republish poison message")
	}
}

func (a *Aggregator) persist(ctx context.Context, update *models.StateUpdate) {
	if a.store == nil {
		return
	}

	snap := &Snapshot{
		State:      update.State,
		AppliedIDs: a.dedup.Keys(),
		SavedAt:    a.now().UTC(),
	}
	if err := a.store.Save(ctx, snap); err != nil {
		metrics.SnapshotErrors.Inc()
		a.logger.Error().Err(err).Uint64("sequence", update.Sequence).Msg("failed to save snapshot")
	}
}
