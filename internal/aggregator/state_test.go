// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package aggregator

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/marathon/internal/models"
)

func reading(participant string, pages int64) models.ReadingEvent {
	return models.ReadingEvent{
		MarathonID:    "verao_2025",
		ParticipantID: participant,
		BookTitle:     "O Cortiço",
		PagesRead:     pages,
		Timestamp:     time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestState_ApplyAccumulates(t *testing.T) {
	s := NewState("verao_2025", 10)

	s.Apply(reading("ana", 10))
	s.Apply(reading("bia", 5))
	update := s.Apply(reading("ana", 7))

	if update.Sequence != 3 || update.State.Sequence != 3 {
		t.Errorf("expected sequence 3, got %d/%d", update.Sequence, update.State.Sequence)
	}
	if update.State.TotalPagesRead != 22 {
		t.Errorf("expected 22 total pages, got %d", update.State.TotalPagesRead)
	}
	if update.State.ParticipantTotals["ana"] != 17 || update.State.ParticipantTotals["bia"] != 5 {
		t.Errorf("unexpected participant totals %v", update.State.ParticipantTotals)
	}
	if update.Reading.PagesRead != 7 {
		t.Errorf("update should carry the applied reading, got %+v", update.Reading)
	}
	if update.State.UpdatedAt == nil {
		t.Error("expected updatedAt to be set")
	}
}

func TestState_ApplySaturatesTotals(t *testing.T) {
	s := NewState("verao_2025", 10)

	s.Apply(reading("ana", math.MaxInt64-5))
	update := s.Apply(reading("ana", 10))

	if update.State.TotalPagesRead != math.MaxInt64 {
		t.Errorf("total should saturate, got %d", update.State.TotalPagesRead)
	}
	if update.State.ParticipantTotals["ana"] != math.MaxInt64 {
		t.Errorf("participant total should saturate, got %d", update.State.ParticipantTotals["ana"])
	}

	update = s.Apply(reading("ana", -3))
	if update.State.TotalPagesRead != math.MaxInt64 || update.State.ParticipantTotals["ana"] != math.MaxInt64 {
		t.Errorf("totals must never decrease, got %d/%d",
			update.State.TotalPagesRead, update.State.ParticipantTotals["ana"])
	}
}

func TestState_TotalsEqualSumOfParticipants(t *testing.T) {
	s := NewState("verao_2025", 3)
	for i := 0; i < 50; i++ {
		s.Apply(reading(fmt.Sprintf("p%d", i%7), int64(i%5+1)))
	}

	snap := s.Snapshot()
	var sum int64
	for _, total := range snap.ParticipantTotals {
		sum += total
	}
	if sum != snap.TotalPagesRead {
		t.Errorf("participant totals sum to %d, total is %d", sum, snap.TotalPagesRead)
	}
}

func TestState_RecentActivityWindow(t *testing.T) {
	s := NewState("verao_2025", 3)
	for i := 1; i <= 5; i++ {
		s.Apply(reading(fmt.Sprintf("p%d", i), int64(i)))
	}

	recent := s.Snapshot().RecentActivity
	if len(recent) != 3 {
		t.Fatalf("expected 3 recent readings, got %d", len(recent))
	}
	for i, want := range []string{"p5", "p4", "p3"} {
		if recent[i].ParticipantID != want {
			t.Errorf("recent[%d] = %s, want %s", i, recent[i].ParticipantID, want)
		}
	}
}

func TestState_DefaultWindowSize(t *testing.T) {
	s := NewState("m", 0)
	for i := 0; i < DefaultRecentActivitySize+5; i++ {
		s.Apply(reading("ana", 1))
	}
	if got := len(s.Snapshot().RecentActivity); got != DefaultRecentActivitySize {
		t.Errorf("expected %d recent readings, got %d", DefaultRecentActivitySize, got)
	}
}

func TestState_SnapshotIsIsolated(t *testing.T) {
	s := NewState("verao_2025", 10)
	s.Apply(reading("ana", 10))

	snap := s.Snapshot()
	snap.ParticipantTotals["ana"] = 999
	snap.RecentActivity[0].PagesRead = 999

	again := s.Snapshot()
	if again.ParticipantTotals["ana"] != 10 || again.RecentActivity[0].PagesRead != 10 {
		t.Error("mutating a snapshot must not affect the state")
	}
}

func TestState_UpdateIsIsolated(t *testing.T) {
	s := NewState("verao_2025", 10)
	first := s.Apply(reading("ana", 10))
	s.Apply(reading("ana", 5))

	if first.State.ParticipantTotals["ana"] != 10 {
		t.Errorf("earlier update changed after a later apply: %v", first.State.ParticipantTotals)
	}
}

func TestState_Restore(t *testing.T) {
	saved := models.NewMarathonState("other_id")
	saved.TotalPagesRead = 30
	saved.ParticipantTotals["ana"] = 30
	saved.Sequence = 4
	for i := 0; i < 5; i++ {
		saved.RecentActivity = append(saved.RecentActivity, reading("ana", 6))
	}

	s := NewState("verao_2025", 2)
	s.Restore(saved)

	snap := s.Snapshot()
	if snap.MarathonID != "verao_2025" {
		t.Errorf("restore should keep the configured marathon id, got %q", snap.MarathonID)
	}
	if snap.Sequence != 4 || snap.TotalPagesRead != 30 {
		t.Errorf("unexpected restored state %+v", snap)
	}
	if len(snap.RecentActivity) != 2 {
		t.Errorf("recent activity should be trimmed to 2, got %d", len(snap.RecentActivity))
	}

	if update := s.Apply(reading("bia", 1)); update.Sequence != 5 {
		t.Errorf("sequence should continue from the snapshot, got %d", update.Sequence)
	}
}

func TestState_ConcurrentReaders(t *testing.T) {
	s := NewState("verao_2025", 10)

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for i := 0; i < 200; i++ {
				snap := s.Snapshot()
				if snap.Sequence < last {
					t.Errorf("sequence went backwards: %d after %d", snap.Sequence, last)
					return
				}
				last = snap.Sequence
				_ = s.Leaderboard(3)
			}
		}()
	}

	for i := 0; i < 200; i++ {
		s.Apply(reading("ana", 1))
	}
	wg.Wait()

	if s.Sequence() != 200 {
		t.Errorf("expected sequence 200, got %d", s.Sequence())
	}
}
