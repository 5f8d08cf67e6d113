package domain

import "time"

// ProcessingStatus enumerates pipeline milestones for a retained post.
type ProcessingStatus string

const (
	StatusCollected  ProcessingStatus = "collected"
	StatusSummarized ProcessingStatus = "summarized"
	StatusDelivered  ProcessingStatus = "delivered"
)

// ProcessedPost is persisted to the history database so later runs skip re-summarizing.
type ProcessedPost struct {
	Key         string
	Permalink   string
	PaperSource SourceDomain
	Summary     string
	Tags        []string
	Status      ProcessingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
