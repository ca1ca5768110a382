// Package scoring turns a batch of per-criterion scores into a potential's
// aggregate score and triage status. Lower scores are better: an average at or
// above DeclineThreshold declines the submission.
package scoring

import (
	"errors"

	"github.com/yungbote/triage-backend/internal/domain/triage"
)

const (
	DeclineThreshold = 4.0
	MinConfidence    = 0.5
	// The pipeline reports "None" when nothing was missing.
	noMissingData = "None"
)

var ErrEmptyBatch = errors.New("scoring: empty batch")

type Entry struct {
	CriterionID string
	Score       float64
	Confidence  float64
	MissingData string
}

type Result struct {
	AvgScore float64
	Status   triage.PotentialStatus
}

func Aggregate(entries []Entry) (Result, error) {
	if len(entries) == 0 {
		return Result{}, ErrEmptyBatch
	}
	var sum float64
	for _, e := range entries {
		sum += e.Score
	}
	avg := sum / float64(len(entries))
	return Result{AvgScore: avg, Status: classify(avg, entries)}, nil
}

func classify(avg float64, entries []Entry) triage.PotentialStatus {
	if avg >= DeclineThreshold {
		return triage.PotentialDeclined
	}
	for _, e := range entries {
		if e.Confidence < MinConfidence || hasMissingData(e.MissingData) {
			return triage.PotentialNeedsReview
		}
	}
	return triage.PotentialEvaluated
}

func hasMissingData(v string) bool {
	return v != "" && v != noMissingData
}

// Weighter yields the preference factor for a criterion.
type Weighter interface {
	Factor(criterion string) int
}

// WeightedMean weighs each score by its criterion's preference factor. It is
// reported next to the plain average and never drives the status decision.
func WeightedMean(entries []Entry, w Weighter) (float64, error) {
	if len(entries) == 0 {
		return 0, ErrEmptyBatch
	}
	var sum, total float64
	for _, e := range entries {
		f := triage.DefaultFactor
		if w != nil {
			f = w.Factor(e.CriterionID)
		}
		sum += e.Score * float64(f)
		total += float64(f)
	}
	if total == 0 {
		return 0, ErrEmptyBatch
	}
	return sum / total, nil
}
