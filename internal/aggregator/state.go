// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package aggregator

import (
	"math"
	"sync"

	"github.com/tomtom215/marathon/internal/models"
)

// DefaultRecentActivitySize is how many readings the recent-activity window
// keeps when no size is configured.
const DefaultRecentActivitySize = 10

// State guards a MarathonState. Apply is the only mutator; readers get deep
// copies.
type State struct {
	mu         sync.RWMutex
	state      models.MarathonState
	recentSize int
}

// NewState creates an empty state for marathonID.
func NewState(marathonID string, recentSize int) *State {
	if recentSize <= 0 {
		recentSize = DefaultRecentActivitySize
	}
	return &State{
		state:      models.NewMarathonState(marathonID),
		recentSize: recentSize,
	}
}

// Apply adds event to the totals, pushes it to the front of the recent
// activity window and advances the sequence. The returned update carries a
// copy of the resulting state.
//
// Apply does not validate event; callers must reject non-positive pages and
// blank participants first. Totals saturate at math.MaxInt64 and never
// decrease.
func (s *State) Apply(event models.ReadingEvent) models.StateUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	st.TotalPagesRead = addPages(st.TotalPagesRead, event.PagesRead)
	st.ParticipantTotals[event.ParticipantID] = addPages(st.ParticipantTotals[event.ParticipantID], event.PagesRead)

	recent := make([]models.ReadingEvent, 0, min(len(st.RecentActivity)+1, s.recentSize))
	recent = append(recent, event)
	for _, prev := range st.RecentActivity {
		if len(recent) == s.recentSize {
			break
		}
		recent = append(recent, prev)
	}
	st.RecentActivity = recent

	st.Sequence++
	at := event.Timestamp
	st.UpdatedAt = &at

	return models.StateUpdate{
		Sequence: st.Sequence,
		Reading:  event,
		State:    st.Clone(),
	}
}

func addPages(total, pages int64) int64 {
	if pages <= 0 {
		return total
	}
	if total > math.MaxInt64-pages {
		return math.MaxInt64
	}
	return total + pages
}

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() models.MarathonState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Sequence returns the number of events applied so far.
func (s *State) Sequence() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Sequence
}

// Leaderboard ranks participants; see models.MarathonState.Leaderboard.
func (s *State) Leaderboard(limit int) []models.LeaderboardEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Leaderboard(limit)
}

// Participant returns one participant's standing.
func (s *State) Participant(id string) (models.ParticipantView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Participant(id)
}

// Restore replaces the state with a copy of saved. The marathon id is kept
// and the recent-activity window is trimmed to the configured size.
func (s *State) Restore(saved models.MarathonState) {
	restored := saved.Clone()
	if restored.ParticipantTotals == nil {
		restored.ParticipantTotals = make(map[string]int64)
	}
	if restored.RecentActivity == nil {
		restored.RecentActivity = []models.ReadingEvent{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restored.MarathonID = s.state.MarathonID
	if len(restored.RecentActivity) > s.recentSize {
		restored.RecentActivity = restored.RecentActivity[:s.recentSize]
	}
	s.state = restored
}
