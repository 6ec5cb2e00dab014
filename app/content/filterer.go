package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type Verdict string

const (
	VerdictApprove    Verdict = "approve"
	VerdictPending    Verdict = "pending_review"
	VerdictQuarantine Verdict = "quarantine"
	VerdictDrop       Verdict = "drop"
)

// Decision is the terminal outcome of running one record through the
// filter chain. Dropped records are never persisted; quarantined records
// are persisted hidden pending manual review.
type Decision struct {
	Verdict Verdict
	Reason  string
}

// Classifier is the optional safety/relevance stage of the filter chain.
// Implementations live in app/classify.
type Classifier interface {
	Classify(ctx context.Context, record *Record) (Classification, error)
}

// Filterer runs the ordered filter chain: keyword block, banned-entity
// check, classification, trust routing. Order matters: the cheap list
// checks run before the expensive classifier, and a drop at any stage
// short-circuits the rest.
type Filterer struct {
	classifier Classifier
}

func NewFilterer(classifier Classifier) *Filterer {
	return &Filterer{classifier: classifier}
}

func (f *Filterer) Run(ctx context.Context, record *Record, rules *RuleSet, requiredLanguage string) Decision {
	text := record.Title + " " + record.Summary + " " + record.Body

	if kw, ok := rules.MatchKeyword(text); ok {
		return Decision{
			Verdict: VerdictDrop,
			Reason:  fmt.Sprintf("blocked keyword '%s' (severity: %s)", kw.Term, kw.Severity),
		}
	}

	if rules.IsBanned(record.Platform, record.Author) {
		record.TrustTier = TrustTierBanned
		return Decision{
			Verdict: VerdictDrop,
			Reason:  fmt.Sprintf("banned entity %s/%s", record.Platform, record.Author),
		}
	}

	if f.classifier != nil {
		if decision, done := f.classify(ctx, record, requiredLanguage); done {
			return decision
		}
	}

	if _, ok := rules.TrustLevel(record.Platform, record.Author); ok {
		record.TrustTier = TrustTierTrusted
		record.ModerationStatus = StatusApproved
		return Decision{Verdict: VerdictApprove}
	}

	record.TrustTier = TrustTierUntrusted
	record.ModerationStatus = StatusPendingReview
	return Decision{Verdict: VerdictPending, Reason: "untrusted source, routed to manual review"}
}

// classify runs the external classifier. A classifier failure is advisory:
// the record proceeds as safe and relevant with a warning, since dropping
// everything during a classifier outage would silence all sources.
func (f *Filterer) classify(ctx context.Context, record *Record, requiredLanguage string) (Decision, bool) {
	result, err := f.classifier.Classify(ctx, record)
	if err != nil {
		slog.Warn("Classifier unavailable, skipping classification stage",
			"collection", record.Collection, "dedup_key", record.DedupKey, "error", err)
		return Decision{}, false
	}

	if !result.Safe {
		record.ModerationStatus = StatusQuarantined
		record.TrustTier = TrustTierUntrusted
		return Decision{Verdict: VerdictQuarantine, Reason: "flagged unsafe by classifier"}, true
	}

	if !result.Relevant {
		return Decision{Verdict: VerdictDrop, Reason: "not relevant"}, true
	}

	if strings.EqualFold(requiredLanguage, "en") && !result.English {
		return Decision{Verdict: VerdictDrop, Reason: "language mismatch"}, true
	}

	if record.Category == "" && result.Category != "" {
		record.Category = result.Category
	}
	record.Mention = result.Mention

	return Decision{}, false
}
