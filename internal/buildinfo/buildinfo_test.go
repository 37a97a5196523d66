package buildinfo

import "testing"

func TestString(t *testing.T) {
	if got := String("logtapd"); got != "logtapd dev (none) built unknown" {
		t.Errorf("String() = %q", got)
	}
}
