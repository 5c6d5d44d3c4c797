package service

import (
	"cmp"
	"slices"
	"strings"

	"sprintquest/internal/cache"
	"sprintquest/internal/model"
)

const defaultScoreboardSize = 5

// Scoreboard is the read-only summary served to spectators and dashboards
type Scoreboard struct {
	SessionID string               `json:"sessionId"`
	Tally     []cache.TallyEntry   `json:"tally"`
	History   []model.HistoryEntry `json:"history"`
	Players   []*model.Participant `json:"players"`
}

// ScoreboardFrom builds a scoreboard straight from a snapshot
func ScoreboardFrom(s *model.SprintState, limit int) *Scoreboard {
	tally := make([]cache.TallyEntry, 0, len(s.Tally))
	for itemID, votes := range s.Tally {
		tally = append(tally, cache.TallyEntry{ItemID: itemID, Votes: votes})
	}
	sortTally(tally)
	if len(tally) > limit {
		tally = tally[:limit]
	}
	for i := range tally {
		tally[i].Rank = i + 1
	}
	return &Scoreboard{
		SessionID: s.SessionID,
		Tally:     tally,
		History:   s.History,
		Players:   s.Players,
	}
}

func sortTally(entries []cache.TallyEntry) {
	slices.SortFunc(entries, func(a, b cache.TallyEntry) int {
		if c := cmp.Compare(b.Votes, a.Votes); c != 0 {
			return c
		}
		return strings.Compare(a.ItemID, b.ItemID)
	})
}

func sortPlayers(players []*model.Participant) {
	slices.SortFunc(players, func(a, b *model.Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}
