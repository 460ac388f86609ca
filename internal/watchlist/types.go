// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package watchlist ranks unwatched recordings into the "watch list" smart
// playlist and keeps a published copy of the latest ranking.
package watchlist

import (
	"fmt"
	"time"

	"github.com/ManuGH/watchlist/internal/dvr"
)

// RecordingKey identifies a recording by channel and recording start.
type RecordingKey struct {
	ChanID    int       `json:"chanid"`
	StartTime time.Time `json:"starttime"`
}

// String returns the canonical "chanid_YYYYMMDDhhmmss" form (UTC).
func (k RecordingKey) String() string {
	return fmt.Sprintf("%d_%s", k.ChanID, k.StartTime.UTC().Format("20060102150405"))
}

// Candidate is a recording eligible for the watch list.
type Candidate struct {
	Key          RecordingKey `json:"key"`
	RuleID       int          `json:"rule_id"` // 0 for manual recordings
	Title        string       `json:"title"`
	RecGroup     string       `json:"recgroup,omitempty"`
	ScheduledEnd time.Time    `json:"scheduled_end"`

	Watched       bool `json:"watched"`
	AutoExpirable bool `json:"auto_expirable"`
}

// RuleMeta is the scheduling history of one recording rule.
// Zero times mean the value is unknown.
type RuleMeta struct {
	Type          dvr.RecordingType
	Recurrence    dvr.Recurrence
	MaxEpisodes   int // >0 keeps multiple episodes
	AvgDelayHours int // 0 means no history
	NextRecord    time.Time
	LastRecord    time.Time
	LastDelete    time.Time
}

// NewRuleMeta builds rule metadata with the recurrence derived from the schedule type.
func NewRuleMeta(typ dvr.RecordingType, maxEpisodes, avgDelayHours int, next, last, lastDelete time.Time) RuleMeta {
	return RuleMeta{
		Type:          typ,
		Recurrence:    typ.Recurrence(),
		MaxEpisodes:   maxEpisodes,
		AvgDelayHours: avgDelayHours,
		NextRecord:    next,
		LastRecord:    last,
		LastDelete:    lastDelete,
	}
}

// Config holds the ranking parameters. Now is the reference time for every
// relative calculation.
type Config struct {
	MaxAgeDays     int
	BlackoutDays   int
	AutoExpireOnly bool
	Now            time.Time
}

// DefaultConfig returns the stock aging window and blackout multiplier.
func DefaultConfig(now time.Time) Config {
	return Config{
		MaxAgeDays:   60,
		BlackoutDays: 2,
		Now:          now,
	}
}

// Entry is a ranked candidate with its priority score.
type Entry struct {
	Candidate Candidate `json:"candidate"`
	Score     int       `json:"score"`
}

// Reason tells why a candidate was left out of the ranking.
type Reason int

const (
	ReasonEarlierEpisode Reason = iota + 1
	ReasonWatched
	ReasonAutoExpireOff
	ReasonRecentlyDeleted
)

// Reasons lists every exclusion reason in a stable order.
var Reasons = []Reason{ReasonEarlierEpisode, ReasonWatched, ReasonAutoExpireOff, ReasonRecentlyDeleted}

func (r Reason) String() string {
	switch r {
	case ReasonEarlierEpisode:
		return "earlier_episode"
	case ReasonWatched:
		return "watched"
	case ReasonAutoExpireOff:
		return "auto_expire_off"
	case ReasonRecentlyDeleted:
		return "recently_deleted"
	default:
		return "unknown"
	}
}

// Score is the legacy sentinel priority recorded for excluded candidates.
func (r Reason) Score() int {
	return -int(r)
}

// MarshalText renders the reason by name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Exclusion records a candidate that did not make it into the ranking.
type Exclusion struct {
	Candidate Candidate `json:"candidate"`
	Reason    Reason    `json:"reason"`
}

// Result is the output of one ranking pass.
type Result struct {
	Entries  []Entry
	Excluded []Exclusion
}

// ExcludedCounts tallies exclusions per reason.
func (r Result) ExcludedCounts() map[Reason]int {
	counts := make(map[Reason]int, len(Reasons))
	for _, ex := range r.Excluded {
		counts[ex.Reason]++
	}
	return counts
}

// Candidates returns the ranked candidates in order, without scores.
func (r Result) Candidates() []Candidate {
	out := make([]Candidate, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.Candidate)
	}
	return out
}
