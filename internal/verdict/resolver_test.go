package verdict

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"phishing-check/backend/internal/phishtank"
)

type stubChecker struct {
	record phishtank.Record
	err    error
	calls  int
}

func (s *stubChecker) Lookup(ctx context.Context, domain string) (phishtank.Record, error) {
	s.calls++
	return s.record, s.err
}

func TestResolveOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		record  phishtank.Record
		err     error
		want    Verdict
		outcome Outcome
		status  int
	}{
		{"flagged", phishtank.Record{Phish: "true"}, nil, Verdict{true, MessageFlagged}, OutcomeClassified, 200},
		{"flagged bool", phishtank.Record{Phish: true}, nil, Verdict{true, MessageFlagged}, OutcomeClassified, 200},
		{"clean", phishtank.Record{Phish: "false"}, nil, Verdict{false, MessageClean}, OutcomeClassified, 200},
		{"null flag", phishtank.Record{}, nil, Verdict{false, MessageClean}, OutcomeClassified, 200},
		{"invalid payload", phishtank.Record{}, phishtank.ErrInvalidPayload, Verdict{false, MessageInvalidPayload}, OutcomeInvalidPayload, 200},
		{"wrapped invalid payload", phishtank.Record{}, fmt.Errorf("lookup: %w", phishtank.ErrInvalidPayload), Verdict{false, MessageInvalidPayload}, OutcomeInvalidPayload, 200},
		{"status", phishtank.Record{}, &phishtank.StatusError{Code: 503}, Verdict{false, MessageStatusError}, OutcomeStatusError, 503},
		{"transport", phishtank.Record{}, errors.New("dial tcp: connection refused"), Verdict{false, "An error occurred: dial tcp: connection refused"}, OutcomeTransportError, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checker := &stubChecker{record: tc.record, err: tc.err}
			res := NewResolver(checker).Inspect(context.Background(), "example.com")
			if res.Verdict != tc.want {
				t.Fatalf("expected %+v got %+v", tc.want, res.Verdict)
			}
			if res.Outcome != tc.outcome {
				t.Fatalf("expected outcome %s got %s", tc.outcome, res.Outcome)
			}
			if res.UpstreamStatus != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, res.UpstreamStatus)
			}
			if checker.calls != 1 {
				t.Fatalf("expected one lookup got %d", checker.calls)
			}
		})
	}
}

func TestResolveWithoutChecker(t *testing.T) {
	got := NewResolver(nil).Resolve(context.Background(), "example.com")
	if got.IsPhishing {
		t.Fatalf("expected not phishing")
	}
	if !strings.HasPrefix(got.Message, "An error occurred: ") {
		t.Fatalf("unexpected message %q", got.Message)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"url":{"phish":"true"}}}`))
	}))
	defer srv.Close()

	resolver := NewResolver(phishtank.NewClient(phishtank.Config{BaseURL: srv.URL}))
	first := resolver.Resolve(context.Background(), "bad.example")
	for i := 0; i < 3; i++ {
		if got := resolver.Resolve(context.Background(), "bad.example"); got != first {
			t.Fatalf("run %d: expected %+v got %+v", i, first, got)
		}
	}
	if first != (Verdict{IsPhishing: true, Message: MessageFlagged}) {
		t.Fatalf("unexpected verdict %+v", first)
	}
}

func TestResolveMissingFlagIsNotClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"url":{"in_database":false}}}`))
	}))
	defer srv.Close()

	res := NewResolver(phishtank.NewClient(phishtank.Config{BaseURL: srv.URL})).Inspect(context.Background(), "unknown.example")
	if res.Verdict != (Verdict{IsPhishing: false, Message: MessageInvalidPayload}) {
		t.Fatalf("unexpected verdict %+v", res.Verdict)
	}
	if res.Outcome != OutcomeInvalidPayload {
		t.Fatalf("expected invalid payload outcome got %s", res.Outcome)
	}
}

func TestResolveUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	got := NewResolver(phishtank.NewClient(phishtank.Config{BaseURL: base})).Resolve(context.Background(), "example.com")
	if got.IsPhishing || !strings.HasPrefix(got.Message, "An error occurred: ") {
		t.Fatalf("unexpected verdict %+v", got)
	}
}
