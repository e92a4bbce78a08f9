package api

import (
	"time"

	"phishing-check/backend/internal/store"
	"phishing-check/backend/internal/verdict"
)

// CheckRequest is the body accepted by the phishing check endpoint.
type CheckRequest struct {
	Domain string `json:"domain"`
}

// LookupDTO is the API representation of a stored lookup.
type LookupDTO struct {
	ID             uint      `json:"id"`
	Domain         string    `json:"domain"`
	IsPhishing     bool      `json:"is_phishing"`
	Message        string    `json:"message"`
	Outcome        string    `json:"outcome"`
	UpstreamStatus int       `json:"upstream_status"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// HistoryResponse is the payload of the lookup history endpoint.
type HistoryResponse struct {
	Items []LookupDTO `json:"items"`
	Total int64       `json:"total"`
}

// LookupFromModel converts a store.LookupRecord into the DTO representation.
func LookupFromModel(r store.LookupRecord) LookupDTO {
	return LookupDTO{
		ID:             r.ID,
		Domain:         r.Domain,
		IsPhishing:     r.IsPhishing,
		Message:        r.Message,
		Outcome:        r.Outcome,
		UpstreamStatus: r.UpstreamStatus,
		DurationMs:     r.DurationMs,
		CreatedAt:      r.CreatedAt,
	}
}

func recordFromResolution(res verdict.Resolution) *store.LookupRecord {
	return &store.LookupRecord{
		Domain:         res.Domain,
		IsPhishing:     res.Verdict.IsPhishing,
		Message:        res.Verdict.Message,
		Outcome:        string(res.Outcome),
		UpstreamStatus: res.UpstreamStatus,
		DurationMs:     res.DurationMs,
	}
}

func eventFromResolution(res verdict.Resolution) LookupEvent {
	return LookupEvent{
		Type:           "lookup",
		Domain:         res.Domain,
		IsPhishing:     res.Verdict.IsPhishing,
		Message:        res.Verdict.Message,
		Outcome:        string(res.Outcome),
		UpstreamStatus: res.UpstreamStatus,
		DurationMs:     res.DurationMs,
	}
}
