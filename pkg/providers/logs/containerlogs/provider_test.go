package containerlogs

import (
	"errors"
	"reflect"
	"testing"

	"github.com/modoterra/logtap/pkg/core"
)

func TestNormalize(t *testing.T) {
	ev := New().Normalize("abcdef123456789", []byte("listening on :8080"))
	if ev.Message != "listening on :8080" {
		t.Errorf("message: %q", ev.Message)
	}
	if ev.Priority != 6 {
		t.Errorf("priority: %d", ev.Priority)
	}
	if ev.SourceTag != "abcdef123456" {
		t.Errorf("tag: %q", ev.SourceTag)
	}
	if ev.TimestampMicros <= 0 {
		t.Error("expected wall-clock timestamp")
	}
}

func TestNormalizeKeepsLineVerbatim(t *testing.T) {
	line := `{"level":"error","msg":"looks like json"}`
	ev := New().Normalize("abc", []byte(line))
	if ev.Message != line || ev.SourceTag != "abc" {
		t.Errorf("unexpected: %+v", ev)
	}
}

func TestValidate(t *testing.T) {
	p := New()
	if err := p.Validate("abcdef123456"); err != nil {
		t.Errorf("unexpected: %v", err)
	}
	if err := p.Validate("my-container.name_1"); err != nil {
		t.Errorf("names are trusted: %v", err)
	}
	if err := p.Validate(""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestFollowCommand(t *testing.T) {
	got := New().FollowCommand("abcdef123456", 250)
	want := []string{"docker", "logs", "-f", "--tail", "250", "--", "abcdef123456"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
