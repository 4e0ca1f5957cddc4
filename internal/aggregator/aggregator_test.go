// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package aggregator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/marathon/internal/eventprocessor"
	"github.com/tomtom215/marathon/internal/logging"
	"github.com/tomtom215/marathon/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

const (
	testMarathon = "verao_2025"
	testTopic    = "reading_marathon"
)

var testPolicy = eventprocessor.RetryPolicy{
	InitialDelay: 2 * time.Millisecond,
	MaxDelay:     2 * time.Millisecond,
	Multiplier:   1,
	MaxAttempts:  1000,
}

type recordingBroadcaster struct {
	updates chan *models.StateUpdate
}

func newRecorder() *recordingBroadcaster {
	return &recordingBroadcaster{updates: make(chan *models.StateUpdate, 100)}
}

func (r *recordingBroadcaster) Broadcast(ctx context.Context, update *models.StateUpdate) error {
	select {
	case r.updates <- update:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *recordingBroadcaster) next(t *testing.T) *models.StateUpdate {
	t.Helper()
	select {
	case u := <-r.updates:
		return u
	case <-time.After(3 * time.Second):
		t.Fatal("no update broadcast")
		return nil
	}
}

func (r *recordingBroadcaster) expectNone(t *testing.T) {
	t.Helper()
	select {
	case u := <-r.updates:
		t.Fatalf("unexpected update %d", u.Sequence)
	case <-time.After(50 * time.Millisecond):
	}
}

func testConfig() Config {
	return Config{
		MarathonID:         testMarathon,
		Topic:              testTopic,
		PoisonEnabled:      true,
		RecentActivitySize: 10,
		DedupWindow:        100,
	}
}

func startAggregator(t *testing.T, backend eventprocessor.Backend, cfg Config, b Broadcaster, store SnapshotStore) *Aggregator {
	t.Helper()

	conn := eventprocessor.NewConnection("aggregator", backend, eventprocessor.RolePublisher|eventprocessor.RoleSubscriber, testPolicy)
	agg := New(conn, cfg, b, store)
	if err := agg.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = agg.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return agg
}

func publishRaw(t *testing.T, backend eventprocessor.Backend, topic string, payloads ...string) {
	t.Helper()
	session, err := backend.Dial(context.Background(), eventprocessor.RolePublisher)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range payloads {
		msg := message.NewMessage(watermill.NewUUID(), []byte(p))
		if err := session.Publisher().Publish(topic, msg); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAggregator_EndToEnd(t *testing.T) {
	backend := eventprocessor.NewMemoryBackend(nil)
	defer func() { _ = backend.Close() }()

	rec := newRecorder()
	agg := startAggregator(t, backend, testConfig(), rec, nil)

	producerConn := eventprocessor.NewConnection("producer", backend, eventprocessor.RolePublisher, testPolicy)
	producer := eventprocessor.NewProducer(producerConn, eventprocessor.ProducerConfig{MarathonID: testMarathon, Topic: testTopic})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = producer.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	if err := producerConn.WaitConnected(waitCtx); err != nil {
		t.Fatal(err)
	}

	title := "Memórias Póstumas"
	inputs := []models.ReadingInput{
		{ParticipantID: "ana", BookTitle: &title, PagesRead: 10},
		{ParticipantID: "bia", BookTitle: &title, PagesRead: 4},
		{ParticipantID: "ana", BookTitle: &title, PagesRead: 6},
	}
	for i := range inputs {
		if _, err := producer.Submit(ctx, &inputs[i]); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	var last *models.StateUpdate
	for i := 0; i < len(inputs); i++ {
		u := rec.next(t)
		if last != nil && u.Sequence != last.Sequence+1 {
			t.Errorf("sequence jumped from %d to %d", last.Sequence, u.Sequence)
		}
		last = u
	}

	snap := agg.Snapshot()
	if snap.TotalPagesRead != 20 || snap.ParticipantTotals["ana"] != 16 || snap.ParticipantTotals["bia"] != 4 {
		t.Errorf("unexpected state %+v", snap)
	}
	if snap.Sequence != 3 || last.State.TotalPagesRead != 20 {
		t.Errorf("last update should carry the final state, got seq %d total %d", snap.Sequence, last.State.TotalPagesRead)
	}

	board := agg.Leaderboard(0)
	if len(board) != 2 || board[0].ParticipantID != "ana" {
		t.Errorf("unexpected leaderboard %+v", board)
	}
	if view, ok := agg.Participant("bia"); !ok || view.TotalPagesRead != 4 || view.Rank != 2 {
		t.Errorf("unexpected participant view %+v", view)
	}
}

func TestAggregator_PoisonMessages(t *testing.T) {
	backend := eventprocessor.NewMemoryBackend(nil)
	defer func() { _ = backend.Close() }()

	publishRaw(t, backend, testTopic,
		`not json`,
		`{"marathonId":"verao_2025","participantId":"  ","bookTitle":"x","pagesRead":3}`,
		`{"marathonId":"verao_2025","participantId":"ana","bookTitle":"x","pagesRead":0}`,
		`{"marathonId":"inverno_2024","participantId":"ana","bookTitle":"x","pagesRead":3}`,
		`{"participantId":"ana","bookTitle":"x","pagesRead":3}`,
		`{"marathonId":"verao_2025","participantId":"ana","bookTitle":"x","pagesRead":9223372036854775807}`,
	)

	rec := newRecorder()
	agg := startAggregator(t, backend, testConfig(), rec, nil)

	u := rec.next(t)
	if u.Sequence != 1 || u.State.TotalPagesRead != 3 {
		t.Errorf("only the valid reading should be applied, got seq %d total %d", u.Sequence, u.State.TotalPagesRead)
	}
	if u.Reading.MarathonID != testMarathon {
		t.Errorf("missing marathon id should default to the configured one, got %q", u.Reading.MarathonID)
	}
	if u.Reading.Timestamp.IsZero() {
		t.Error("missing timestamp should be stamped on receipt")
	}
	rec.expectNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sub, err := backend.Dial(ctx, eventprocessor.RoleSubscriber)
	if err != nil {
		t.Fatal(err)
	}
	poisoned, err := sub.Subscriber().Subscribe(ctx, eventprocessor.PoisonTopic(testTopic))
	if err != nil {
		t.Fatal(err)
	}

	// The memory broker does not promise replay order, so compare counts.
	want := map[string]int{ReasonDecode: 1, ReasonInvalid: 3, ReasonForeignMarathon: 1}
	got := map[string]int{}
	for i := 0; i < 5; i++ {
		select {
		case msg := <-poisoned:
			msg.Ack()
			got[msg.Metadata.Get(MetadataPoisonReason)]++
			if msg.Metadata.Get(MetadataOriginalUUID) == "" {
				t.Errorf("poison message %s lost its original uuid", msg.UUID)
			}
		case <-ctx.Done():
			t.Fatalf("only %d of 5 poison messages republished", i)
		}
	}
	for reason, n := range want {
		if got[reason] != n {
			t.Errorf("reason %s: got %d messages, want %d", reason, got[reason], n)
		}
	}

	if agg.Snapshot().Sequence != 1 {
		t.Errorf("poison must not advance the sequence")
	}
}

func TestAggregator_PoisonDisabled(t *testing.T) {
	backend := eventprocessor.NewMemoryBackend(nil)
	defer func() { _ = backend.Close() }()

	publishRaw(t, backend, testTopic,
		`{"participantId":"ana","pagesRead":"lots"}`,
		`{"participantId":"ana","bookTitle":"","pagesRead":2}`,
	)

	cfg := testConfig()
	cfg.PoisonEnabled = false
	rec := newRecorder()
	startAggregator(t, backend, cfg, rec, nil)

	if u := rec.next(t); u.State.TotalPagesRead != 2 {
		t.Errorf("expected 2 pages, got %d", u.State.TotalPagesRead)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	sub, _ := backend.Dial(ctx, eventprocessor.RoleSubscriber)
	poisoned, err := sub.Subscriber().Subscribe(ctx, eventprocessor.PoisonTopic(testTopic))
	if err != nil {
		t.Fatal(err)
	}
	select {
	case msg, ok := <-poisoned:
		if ok {
			t.Errorf("nothing should be republished, got %s", msg.UUID)
		}
	case <-ctx.Done():
	}
}

func TestAggregator_SkipsRedeliveredEvents(t *testing.T) {
	backend := eventprocessor.NewMemoryBackend(nil)
	defer func() { _ = backend.Close() }()

	dup := `{"eventId":"evt-1","marathonId":"verao_2025","participantId":"ana","bookTitle":"x","pagesRead":5,"timestamp":"2025-01-10T10:00:00Z"}`
	publishRaw(t, backend, testTopic,
		dup,
		dup,
		`{"eventId":"evt-2","marathonId":"verao_2025","participantId":"bia","bookTitle":"x","pagesRead":1,"timestamp":"2025-01-10T10:01:00Z"}`,
	)

	rec := newRecorder()
	agg := startAggregator(t, backend, testConfig(), rec, nil)

	first := rec.next(t)
	second := rec.next(t)
	rec.expectNone(t)

	if first.Reading.EventID == second.Reading.EventID {
		t.Errorf("event %s applied twice", first.Reading.EventID)
	}
	if second.Sequence != first.Sequence+1 {
		t.Errorf("sequences %d, %d are not consecutive", first.Sequence, second.Sequence)
	}
	if snap := agg.Snapshot(); snap.TotalPagesRead != 6 || snap.Sequence != 2 {
		t.Errorf("duplicate was applied: %+v", snap)
	}
}

func TestAggregator_RestoreFromSnapshot(t *testing.T) {
	backend := eventprocessor.NewMemoryBackend(nil)
	defer func() { _ = backend.Close() }()

	store, err := OpenBadgerStore(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	publishRaw(t, backend, testTopic,
		`{"eventId":"e1","marathonId":"verao_2025","participantId":"ana","bookTitle":"x","pagesRead":8,"timestamp":"2025-01-10T10:00:00Z"}`,
		`{"eventId":"e2","marathonId":"verao_2025","participantId":"bia","bookTitle":"x","pagesRead":2,"timestamp":"2025-01-10T10:05:00Z"}`,
	)

	// First run applies both readings and saves the snapshot.
	func() {
		conn := eventprocessor.NewConnection("aggregator", backend, eventprocessor.RoleSubscriber, testPolicy)
		rec := newRecorder()
		agg := New(conn, testConfig(), rec, store)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = agg.Run(ctx)
		}()
		rec.next(t)
		rec.next(t)
		cancel()
		<-done
	}()

	// The memory broker replays both messages; the restored ids skip them.
	rec := newRecorder()
	agg := startAggregator(t, backend, testConfig(), rec, store)
	rec.expectNone(t)

	snap := agg.Snapshot()
	if snap.Sequence != 2 || snap.TotalPagesRead != 10 || snap.ParticipantTotals["ana"] != 8 {
		t.Errorf("unexpected restored state %+v", snap)
	}

	publishRaw(t, backend, testTopic,
		`{"eventId":"e3","marathonId":"verao_2025","participantId":"bia","bookTitle":"x","pagesRead":1,"timestamp":"2025-01-10T10:10:00Z"}`,
	)
	if u := rec.next(t); u.Sequence != 3 || u.State.TotalPagesRead != 11 {
		t.Errorf("new reading should continue from the snapshot, got seq %d total %d", u.Sequence, u.State.TotalPagesRead)
	}
}

func TestAggregator_HealthCheck(t *testing.T) {
	backend := eventprocessor.NewMemoryBackend(nil)
	defer func() { _ = backend.Close() }()

	agg := startAggregator(t, backend, testConfig(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := agg.Connection().WaitConnected(ctx); err != nil {
		t.Fatal(err)
	}

	h := agg.HealthCheck(ctx)
	if !h.Healthy {
		t.Errorf("expected healthy, got %+v", h)
	}
	if _, ok := h.Details["sequence"]; !ok {
		t.Error("expected the sequence in health details")
	}
}
