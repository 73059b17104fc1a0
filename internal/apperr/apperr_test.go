package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{Precondition("event is full"), http.StatusBadRequest},
		{Forbidden("not yours"), http.StatusForbidden},
		{Conflict("duplicate"), http.StatusConflict},
		{NotFound("missing"), http.StatusNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Errorf("Status(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestPayloadCarriesContext(t *testing.T) {
	err := Precondition("event is full").
		With("capacity", 50).
		With("current_registrations", 50)

	payload := Payload(err)
	if payload["error"] != "event is full" {
		t.Errorf("payload error = %v", payload["error"])
	}
	if payload["capacity"] != 50 || payload["current_registrations"] != 50 {
		t.Errorf("payload context incomplete: %v", payload)
	}
}

func TestWrappedErrorsKeepKind(t *testing.T) {
	inner := Conflict("already registered")
	wrapped := fmt.Errorf("register: %w", inner)

	if got := Status(wrapped); got != http.StatusConflict {
		t.Errorf("Status(wrapped) = %d, want 409", got)
	}
	if Payload(wrapped)["error"] != "register: already registered" {
		t.Errorf("unexpected message: %v", Payload(wrapped)["error"])
	}
}
