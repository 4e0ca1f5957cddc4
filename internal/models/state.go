// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package models

import (
	"sort"
	"time"
)

// MarathonState is the aggregate of every reading applied for one marathon.
type MarathonState struct {
	MarathonID        string           `json:"marathonId"`
	TotalPagesRead    int64            `json:"totalPagesRead"`
	ParticipantTotals map[string]int64 `json:"participantTotals"`
	RecentActivity    []ReadingEvent   `json:"recentActivity"`
	Sequence          uint64           `json:"sequence"`
	UpdatedAt         *time.Time       `json:"updatedAt,omitempty"`
}

// NewMarathonState returns an empty state for marathonID.
func NewMarathonState(marathonID string) MarathonState {
	return MarathonState{
		MarathonID:        marathonID,
		ParticipantTotals: make(map[string]int64),
		RecentActivity:    []ReadingEvent{},
	}
}

// Clone returns a deep copy that shares no maps or slices with s.
func (s *MarathonState) Clone() MarathonState {
	out := *s
	out.ParticipantTotals = make(map[string]int64, len(s.ParticipantTotals))
	for id, total := range s.ParticipantTotals {
		out.ParticipantTotals[id] = total
	}
	out.RecentActivity = make([]ReadingEvent, len(s.RecentActivity))
	copy(out.RecentActivity, s.RecentActivity)
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// LeaderboardEntry is one ranked participant.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participantId"`
	PagesRead     int64  `json:"pagesRead"`
}

// Leaderboard ranks participants by total pages, highest first. Ties are
// ordered by participant id and share a rank. limit <= 0 returns everyone.
func (s *MarathonState) Leaderboard(limit int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(s.ParticipantTotals))
	for id, total := range s.ParticipantTotals {
		entries = append(entries, LeaderboardEntry{ParticipantID: id, PagesRead: total})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PagesRead != entries[j].PagesRead {
			return entries[i].PagesRead > entries[j].PagesRead
		}
		return entries[i].ParticipantID < entries[j].ParticipantID
	})

	for i := range entries {
		if i > 0 && entries[i].PagesRead == entries[i-1].PagesRead {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// ParticipantView is one participant's standing plus their readings still
// in the recent-activity window.
type ParticipantView struct {
	ParticipantID  string         `json:"participantId"`
	TotalPagesRead int64          `json:"totalPagesRead"`
	Rank           int            `json:"rank"`
	RecentActivity []ReadingEvent `json:"recentActivity"`
}

// Participant returns the view for id, or false if id never read anything.
func (s *MarathonState) Participant(id string) (ParticipantView, bool) {
	total, ok := s.ParticipantTotals[id]
	if !ok {
		return ParticipantView{}, false
	}

	view := ParticipantView{
		ParticipantID:  id,
		TotalPagesRead: total,
		RecentActivity: []ReadingEvent{},
	}
	for _, entry := range s.Leaderboard(0) {
		if entry.ParticipantID == id {
			view.Rank = entry.Rank
			break
		}
	}
	for i := range s.RecentActivity {
		if s.RecentActivity[i].ParticipantID == id {
			view.RecentActivity = append(view.RecentActivity, s.RecentActivity[i])
		}
	}
	return view, true
}

// StateUpdate is pushed to live viewers after every applied reading.
type StateUpdate struct {
	Sequence uint64        `json:"sequence"`
	Reading  ReadingEvent  `json:"reading"`
	State    MarathonState `json:"state"`
}
