package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestSpinner_NonTTY(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Restoring freezer")
	s.SetWriter(buf)

	s.Start()
	s.Start() // second start is a no-op
	s.Stop()

	if got := strings.Count(buf.String(), "Restoring freezer..."); got != 1 {
		t.Errorf("expected message printed once, got %d times: %q", got, buf.String())
	}
}

func TestSpinner_MultipleStops(t *testing.T) {
	s := NewSpinner("Freezing")
	s.SetWriter(&bytes.Buffer{})

	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinner_StopWithMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Freezing")
	s.SetWriter(buf)

	s.Start()
	s.StopWithMessage("Frozen freezer")

	if !strings.HasSuffix(buf.String(), "Frozen freezer\n") {
		t.Errorf("expected final message, got %q", buf.String())
	}
}
