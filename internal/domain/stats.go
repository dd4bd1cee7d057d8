package domain

import (
	"math"
	"time"
)

// Statistics summarises a revealed round over participants only.
type Statistics struct {
	TotalVotes int      `json:"total_votes"`
	VotesCast  int      `json:"votes_cast"`
	Average    *float64 `json:"average"`
	Min        *int     `json:"min"`
	Max        *int     `json:"max"`
}

type CastVote struct {
	Name string `json:"name"`
	Vote Card   `json:"vote"`
}

// HistoryEntry archives one revealed round. Never mutated once appended.
type HistoryEntry struct {
	At     time.Time  `json:"at"`
	Topic  string     `json:"topic,omitempty"`
	Preset string     `json:"preset"`
	Votes  []CastVote `json:"votes"`
	Stats  Statistics `json:"stats"`
}

// Statistics is only available once the round is revealed. Unknown votes
// are not counted as cast; symbolic cards count as cast but stay out of
// the numeric aggregates.
func (r Room) Statistics() (Statistics, bool) {
	if !r.Revealed {
		return Statistics{}, false
	}

	var s Statistics
	var sum, lo, hi, n int
	for _, p := range r.Players {
		if p.Role != Participant {
			continue
		}
		s.TotalVotes++
		if !p.HasVoted() || p.Vote == Unknown {
			continue
		}
		s.VotesCast++
		v, ok := p.Vote.Int()
		if !ok {
			continue
		}
		if n == 0 || v < lo {
			lo = v
		}
		if n == 0 || v > hi {
			hi = v
		}
		sum += v
		n++
	}
	if n > 0 {
		avg := math.Round(float64(sum)/float64(n)*10) / 10
		s.Average, s.Min, s.Max = &avg, &lo, &hi
	}
	return s, true
}
