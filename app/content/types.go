package content

import (
	"time"
)

type TrustTier string

const (
	TrustTierTrusted   TrustTier = "trusted"
	TrustTierUntrusted TrustTier = "untrusted"
	TrustTierBanned    TrustTier = "banned"
)

type ModerationStatus string

const (
	StatusApproved      ModerationStatus = "approved"
	StatusPendingReview ModerationStatus = "pending_review"
	StatusRejected      ModerationStatus = "rejected"
	StatusQuarantined   ModerationStatus = "quarantined"
)

// Media is an optional structured reference to an image attached to a record.
type Media struct {
	URL string
	Alt string
}

// Record is the canonical shape every source adapter output is normalized
// into before filtering and persistence. DedupKey is stable across re-fetches
// of the same underlying item. CreatedAt is the local ingestion time and
// orders the rolling window; PublishedAt is the origin timestamp.
type Record struct {
	ID               string
	Collection       string
	DedupKey         string
	Title            string
	Summary          string
	Body             string
	Link             string
	SourceName       string
	SourceType       string
	Platform         string
	Author           string
	Category         string
	TrustTier        TrustTier
	ModerationStatus ModerationStatus
	Media            *Media
	Mention          string
	FilterReason     string
	IsBreaking       bool
	IsFeatured       bool
	PublishedAt      time.Time
	CreatedAt        time.Time
}

// RawItem is a single candidate item as produced by a source adapter,
// before normalization. NativeID is the provider's own identifier when
// the provider exposes one.
type RawItem struct {
	NativeID    string
	Title       string
	Summary     string
	Body        string
	Link        string
	Author      string
	Platform    string
	Category    string
	MediaURL    string
	MediaAlt    string
	ContentHTML string
	IsBreaking  bool
	PublishedAt time.Time
}

// Classification is the outcome of the safety/relevance stage of the
// filter chain.
type Classification struct {
	Safe      bool
	Relevant  bool
	English   bool
	Sentiment string
	Category  string
	Mention   string
}
