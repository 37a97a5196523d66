package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestRejectUnwraps(t *testing.T) {
	err := fmt.Errorf("open stream: %w", Reject(ErrForbidden, "Daemon not allowed"))
	if !errors.Is(err, ErrForbidden) {
		t.Error("expected ErrForbidden")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("did not expect ErrValidation")
	}
	var re *RequestError
	if !errors.As(err, &re) || re.Msg != "Daemon not allowed" {
		t.Errorf("expected RequestError with message, got %v", err)
	}
}
