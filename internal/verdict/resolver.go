package verdict

import (
	"context"
	"errors"
	"fmt"

	"phishing-check/backend/internal/phishtank"
	"phishing-check/backend/internal/util"
)

// Messages returned to callers for each outcome.
const (
	MessageFlagged        = "This domain is flagged as phishing."
	MessageClean          = "This domain is not phishing."
	MessageInvalidPayload = "PhishTank API did not return valid data."
	MessageStatusError    = "Error checking domain with PhishTank."
	messageErrorPrefix    = "An error occurred: "
)

// Outcome classifies how a lookup ended.
type Outcome string

const (
	OutcomeClassified     Outcome = "classified"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeStatusError    Outcome = "status_error"
	OutcomeInvalidPayload Outcome = "invalid_payload"
)

// Verdict is the normalized answer returned to callers.
type Verdict struct {
	IsPhishing bool   `json:"is_phishing"`
	Message    string `json:"message"`
}

// Resolution is a Verdict plus lookup diagnostics.
type Resolution struct {
	Domain         string
	Verdict        Verdict
	Outcome        Outcome
	UpstreamStatus int
	DurationMs     int64
	Err            error
}

// Checker is the reputation lookup the resolver relies on.
type Checker interface {
	Lookup(ctx context.Context, domain string) (phishtank.Record, error)
}

// Resolver turns reputation lookups into verdicts.
type Resolver struct {
	checker Checker
}

// NewResolver builds a resolver around the supplied checker.
func NewResolver(checker Checker) *Resolver {
	return &Resolver{checker: checker}
}

// Resolve returns the verdict for domain. It never fails; every error is
// folded into a verdict with IsPhishing false.
func (r *Resolver) Resolve(ctx context.Context, domain string) Verdict {
	return r.Inspect(ctx, domain).Verdict
}

// Inspect resolves domain and keeps the outcome details alongside the verdict.
func (r *Resolver) Inspect(ctx context.Context, domain string) Resolution {
	timer := util.StartTimer()
	res := Resolution{Domain: domain}

	if r == nil || r.checker == nil {
		res.Err = errors.New("reputation checker not configured")
	} else {
		var record phishtank.Record
		record, res.Err = r.checker.Lookup(ctx, domain)
		if res.Err == nil {
			res.Outcome = OutcomeClassified
			res.UpstreamStatus = 200
			res.Verdict = Classify(record)
		}
	}

	if res.Err != nil {
		res.Outcome, res.UpstreamStatus, res.Verdict = FromError(res.Err)
	}
	res.DurationMs = timer.ElapsedMs()
	return res
}

// Classify maps a successful lookup onto a verdict.
func Classify(record phishtank.Record) Verdict {
	if record.Flagged() {
		return Verdict{IsPhishing: true, Message: MessageFlagged}
	}
	return Verdict{IsPhishing: false, Message: MessageClean}
}

// FromError maps a failed lookup onto its outcome, upstream status and verdict.
func FromError(err error) (Outcome, int, Verdict) {
	var statusErr *phishtank.StatusError
	switch {
	case errors.As(err, &statusErr):
		return OutcomeStatusError, statusErr.Code, Verdict{Message: MessageStatusError}
	case errors.Is(err, phishtank.ErrInvalidPayload):
		return OutcomeInvalidPayload, 200, Verdict{Message: MessageInvalidPayload}
	default:
		return OutcomeTransportError, 0, Verdict{Message: fmt.Sprintf("%s%v", messageErrorPrefix, err)}
	}
}
