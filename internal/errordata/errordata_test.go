package errordata

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		kind   Kind
		status int
	}{
		{Validation("empty"), KindValidation, http.StatusBadRequest},
		{NotFound("gone"), KindNotFound, http.StatusNotFound},
		{Conflict("taken"), KindConflict, http.StatusConflict},
		{&Error{Kind: KindTransport}, KindTransport, http.StatusBadGateway},
		{Persistence("boom", errors.New("disk")), KindPersistence, http.StatusInternalServerError},
		{errors.New("plain"), KindUnknown, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("gone")), KindNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.kind {
			t.Errorf("KindOf(%v) = %s, want %s", tc.err, got, tc.kind)
		}
		if got := HTTPStatus(tc.err); got != tc.status {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
	if KindOf(nil) != "" || Is(nil, KindUnknown) {
		t.Fatal("nil error has no kind")
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	if got := PublicMessage(Validation("Message cannot be empty")); got != "Message cannot be empty" {
		t.Fatalf("got %q", got)
	}
	if got := PublicMessage(Persistence("insert failed", errors.New("pq: secret detail"))); got != "An internal error occurred" {
		t.Fatalf("persistence detail leaked: %q", got)
	}
	if got := PublicMessage(errors.New("raw")); got != "An internal error occurred" {
		t.Fatalf("unknown detail leaked: %q", got)
	}
}

func TestErrorUnwrapAndGatewayKinds(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &Error{Kind: KindTransport, Message: "unreachable", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatal("Unwrap should expose the cause")
	}
	if !IsGatewayFailure(err) || IsGatewayFailure(Validation("x")) {
		t.Fatal("IsGatewayFailure misclassified")
	}
	withStatus := &Error{Kind: KindProvider, Message: "bad", StatusCode: 503}
	if withStatus.Error() != "provider_error (HTTP 503): bad" {
		t.Fatalf("unexpected Error() %q", withStatus.Error())
	}
}
