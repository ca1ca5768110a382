package triage

import "fmt"

type ApplicationStatus string

const (
	StatusSubmitted     ApplicationStatus = "submitted"
	StatusUploaded      ApplicationStatus = "uploaded"
	StatusProcessing    ApplicationStatus = "processing"
	StatusProcessed     ApplicationStatus = "processed"
	StatusUnderReview   ApplicationStatus = "under_review"
	StatusEvaluated     ApplicationStatus = "evaluated"
	StatusDeclined      ApplicationStatus = "declined"
	StatusNeedsReview   ApplicationStatus = "needs_review"
	StatusAccepted      ApplicationStatus = "accepted"
	StatusRejected      ApplicationStatus = "rejected"
	StatusNeedsRevision ApplicationStatus = "needs_revision"
)

var allStatuses = []ApplicationStatus{
	StatusSubmitted, StatusUploaded, StatusProcessing, StatusProcessed, StatusUnderReview,
	StatusEvaluated, StatusDeclined, StatusNeedsReview, StatusAccepted, StatusRejected, StatusNeedsRevision,
}

func AllStatuses() []ApplicationStatus {
	return append([]ApplicationStatus(nil), allStatuses...)
}

func (s ApplicationStatus) Valid() bool {
	for _, v := range allStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Actor identifies who drives a transition.
type Actor string

const (
	ActorSystem   Actor = "system"   // upload flow, deep analysis start, ingestion
	ActorPipeline Actor = "pipeline" // external processing pipeline
	ActorStaff    Actor = "staff"    // reviewers and admins
)

type edge struct {
	to     ApplicationStatus
	actors []Actor
}

var adminOutcomes = []ApplicationStatus{StatusAccepted, StatusRejected, StatusNeedsRevision}

// processed -> under_review belongs to StartDeepAnalysis alone, which also
// creates the potential and the dispatch in the same transaction.
var graph = map[ApplicationStatus][]edge{
	StatusSubmitted:  {{StatusUploaded, []Actor{ActorSystem}}},
	StatusUploaded:   {{StatusProcessing, []Actor{ActorSystem}}},
	StatusProcessing: {{StatusProcessed, []Actor{ActorPipeline, ActorStaff}}},
	StatusProcessed:  {{StatusUnderReview, []Actor{ActorSystem}}},
	StatusUnderReview: {
		{StatusEvaluated, []Actor{ActorSystem}},
		{StatusDeclined, []Actor{ActorSystem}},
		{StatusNeedsReview, []Actor{ActorSystem}},
	},
}

func init() {
	for _, from := range []ApplicationStatus{StatusProcessed, StatusUnderReview, StatusEvaluated, StatusDeclined, StatusNeedsReview} {
		for _, to := range adminOutcomes {
			graph[from] = append(graph[from], edge{to, []Actor{ActorStaff}})
		}
	}
}

// CanTransition reports whether actor may move an application from one status to another.
func CanTransition(from, to ApplicationStatus, actor Actor) bool {
	for _, e := range graph[from] {
		if e.to != to {
			continue
		}
		for _, a := range e.actors {
			if a == actor {
				return true
			}
		}
	}
	return false
}

// SourcesFor lists every status from which actor may reach to.
func SourcesFor(to ApplicationStatus, actor Actor) []ApplicationStatus {
	var out []ApplicationStatus
	for _, from := range allStatuses {
		if CanTransition(from, to, actor) {
			out = append(out, from)
		}
	}
	return out
}

type TransitionError struct {
	From  ApplicationStatus
	To    ApplicationStatus
	Actor Actor
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s not allowed for %s", e.From, e.To, e.Actor)
}

func CheckTransition(from, to ApplicationStatus, actor Actor) error {
	if !CanTransition(from, to, actor) {
		return &TransitionError{From: from, To: to, Actor: actor}
	}
	return nil
}

// ApplicationOutcome maps a scoring result onto the application status it settles.
func (s PotentialStatus) ApplicationOutcome() (ApplicationStatus, bool) {
	switch s {
	case PotentialEvaluated:
		return StatusEvaluated, true
	case PotentialDeclined:
		return StatusDeclined, true
	case PotentialNeedsReview:
		return StatusNeedsReview, true
	}
	return "", false
}
