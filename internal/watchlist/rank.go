// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package watchlist

import (
	"sort"
	"time"

	"github.com/ManuGH/watchlist/internal/dvr"
)

const (
	// noDelayHours is the average delay of a rule without delete history.
	noDelayHours = 100
	// outOfRangeHours marks an interval that could not be computed.
	outOfRangeHours = 1000

	dailySpanHours   = 50
	freshHours       = 42
	singleShotHours  = 36
	dailyBlackout    = 4
	weeklyBlackout   = 24
	oneShotBlackout  = 48
	blackoutSlackHrs = 4
)

// intervals are the whole-hour distances derived from a rule's history.
type intervals struct {
	span int // last recording to next recording
	del  int // last delete to now
	next int // now to next recording, 0 when unknown
}

func deriveIntervals(meta RuleMeta, now time.Time) intervals {
	iv := intervals{span: outOfRangeHours, del: outOfRangeHours}

	if !meta.LastRecord.IsZero() && !meta.NextRecord.IsZero() {
		iv.span = hoursBetween(meta.LastRecord, meta.NextRecord) + 1
	}
	if !meta.LastDelete.IsZero() {
		iv.del = hoursBetween(meta.LastDelete, now) + 1
	}
	if !meta.NextRecord.IsZero() {
		iv.next = hoursBetween(now, meta.NextRecord) + 1
	}

	// A zero span means there is no usable history for this rule.
	if iv.span == 0 {
		iv.span = outOfRangeHours
		iv.del = outOfRangeHours
	}
	return iv
}

// hoursBetween truncates to whole seconds first, then to whole hours.
func hoursBetween(from, to time.Time) int {
	secs := int64(to.Sub(from) / time.Second)
	return int(secs / 3600)
}

// Rank filters and orders candidates for the watch list.
//
// candidates must be ordered most recent first within each rule. The input is
// never modified. Entries are ordered by descending score; equal scores keep
// their input order.
func Rank(candidates []Candidate, rules map[int]RuleMeta, cfg Config) Result {
	var res Result

	// episodes counts every unwatched candidate per rule, including the
	// earlier episodes dropped below.
	episodes := make(map[int]int)
	pool := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		switch {
		case cfg.AutoExpireOnly && !c.AutoExpirable:
			res.Excluded = append(res.Excluded, Exclusion{Candidate: c, Reason: ReasonAutoExpireOff})
			continue
		case c.Watched:
			res.Excluded = append(res.Excluded, Exclusion{Candidate: c, Reason: ReasonWatched})
			continue
		}

		if c.RuleID == 0 {
			pool = append(pool, c)
			continue
		}

		episodes[c.RuleID]++
		if episodes[c.RuleID] > 1 && rules[c.RuleID].MaxEpisodes <= 0 {
			res.Excluded = append(res.Excluded, Exclusion{Candidate: c, Reason: ReasonEarlierEpisode})
			continue
		}
		pool = append(pool, c)
	}

	baseValue := cfg.MaxAgeDays * 2 / 3
	res.Entries = make([]Entry, 0, len(pool))
	for _, c := range pool {
		var meta RuleMeta
		if c.RuleID != 0 {
			meta = rules[c.RuleID]
		}

		score, suppressed := scoreCandidate(c, episodes[c.RuleID], meta, baseValue, cfg)
		if suppressed {
			res.Excluded = append(res.Excluded, Exclusion{Candidate: c, Reason: ReasonRecentlyDeleted})
			continue
		}
		res.Entries = append(res.Entries, Entry{Candidate: c, Score: score})
	}

	sort.SliceStable(res.Entries, func(i, j int) bool {
		return res.Entries[i].Score > res.Entries[j].Score
	})
	return res
}

// scoreCandidate returns the priority of one candidate, or suppressed=true
// when its rule had an episode deleted inside the blackout window. episodes
// is the number of unwatched candidates of the candidate's rule.
func scoreCandidate(c Candidate, episodes int, meta RuleMeta, baseValue int, cfg Config) (score int, suppressed bool) {
	iv := deriveIntervals(meta, cfg.Now)
	multi := c.RuleID != 0 && meta.MaxEpisodes > 0

	avgDelay := meta.AvgDelayHours
	if avgDelay == 0 {
		avgDelay = noDelayHours
	}

	// Points per additional unwatched episode of a single-episode rule.
	if c.RuleID != 0 && !multi {
		score = (episodes - 1) * baseValue
	}

	// Points every 3 hours leading up to the next recording.
	if iv.next > 0 && iv.next < baseValue*3 {
		score += (baseValue*3 - iv.next) / 3
	}

	hrs := hoursBetween(c.ScheduledEnd, cfg.Now)
	if hrs < 1 {
		hrs = 1
	}

	// Fresh recordings lose a point every hour.
	if hrs < freshHours {
		score += freshHours - hrs
	}

	// Closeness of the recorded time of day to now.
	score += abs(hrs%24-12) * 2

	switch {
	case iv.span < dailySpanHours || meta.Recurrence == dvr.RecurrenceDaily:
		if iv.del < cfg.BlackoutDays*dailyBlackout {
			return 0, true
		}
		if multi {
			score += baseValue/2 + hrs/24
		} else {
			score += baseValue/5 + hrs
		}

	case iv.next != 0 || meta.Recurrence == dvr.RecurrenceWeekly:
		if iv.del < cfg.BlackoutDays*weeklyBlackout-blackoutSlackHrs {
			return 0, true
		}
		score += intervalPoints(multi, baseValue, hrs)

	default:
		if iv.del < cfg.BlackoutDays*oneShotBlackout-blackoutSlackHrs {
			return 0, true
		}
		// New single or final episode.
		if hrs < singleShotHours {
			score += baseValue * (singleShotHours - hrs) / singleShotHours
		}
		switch {
		case avgDelay != noDelayHours:
			score += intervalPoints(multi, baseValue, hrs)
		case hrs/24 < cfg.MaxAgeDays:
			score += hrs / 24
		default:
			score += cfg.MaxAgeDays
		}
	}

	// Scale by the average time shift: 0..200 hours maps to 133%..67%.
	delayPct := avgDelay/3 + 67
	if avgDelay < noDelayHours {
		score = score * (200 - delayPct) / 100
	} else if avgDelay > noDelayHours {
		score = score * 100 / delayPct
	}

	return score, false
}

func intervalPoints(multi bool, baseValue, hrs int) int {
	if multi {
		return baseValue/2 + hrs/24
	}
	return baseValue/3 + baseValue*hrs/24/4
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
