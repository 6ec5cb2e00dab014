package content

import (
	"strings"
)

type BannedEntity struct {
	Platform string
	Handle   string
}

type TrustedEntity struct {
	Platform   string
	Handle     string
	TrustLevel int
}

type SafetyKeyword struct {
	Term          string
	CaseSensitive bool
	Severity      string
}

// RuleSet is a point-in-time snapshot of the operator-managed ingestion
// rules. Snapshots are taken once per cycle so operator edits take effect
// on the next cycle without a restart.
type RuleSet struct {
	Banned   []BannedEntity
	Trusted  []TrustedEntity
	Keywords []SafetyKeyword
}

func (rs *RuleSet) IsBanned(platform, handle string) bool {
	for _, b := range rs.Banned {
		if equalFold(b.Platform, platform) && equalFold(b.Handle, handle) {
			return true
		}
	}
	return false
}

func (rs *RuleSet) TrustLevel(platform, handle string) (int, bool) {
	for _, t := range rs.Trusted {
		if equalFold(t.Platform, platform) && equalFold(t.Handle, handle) {
			return t.TrustLevel, true
		}
	}
	return 0, false
}

// MatchKeyword returns the first safety keyword found in text, honoring
// each keyword's case sensitivity setting.
func (rs *RuleSet) MatchKeyword(text string) (SafetyKeyword, bool) {
	lower := strings.ToLower(text)
	for _, kw := range rs.Keywords {
		if kw.Term == "" {
			continue
		}
		if kw.CaseSensitive {
			if strings.Contains(text, kw.Term) {
				return kw, true
			}
		} else {
			if strings.Contains(lower, strings.ToLower(kw.Term)) {
				return kw, true
			}
		}
	}
	return SafetyKeyword{}, false
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
