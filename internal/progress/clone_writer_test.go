package progress

import (
	"context"
	"testing"
)

func cloneWriterFixture() (*CloneWriter, *capturingPublisher) {
	pub := &capturingPublisher{}
	w := NewCloneWriter(context.Background(), NewReporter(pub, "req-1"))
	return w, pub
}

func TestCloneWriterReportsPhasesInOrder(t *testing.T) {
	w, pub := cloneWriterFixture()

	output := "Cloning into 'acme/widgets'...\n" +
		"remote: Enumerating objects: 500, done.\n" +
		"Receiving objects:  10% (50/500)\r" +
		"Receiving objects: 100% (500/500), done.\r" +
		"Resolving deltas: 100% (120/120), done.\n" +
		"Checking out files: done.\n"
	if _, err := w.Write([]byte(output)); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Flush()

	want := []string{"20", "35", "40", "45", "50"}
	got := pub.snapshot()
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("published %v, want %v", got, want)
		}
	}
	if w.LastPercent() != 50 {
		t.Fatalf("last percent = %d, want 50", w.LastPercent())
	}
}

func TestCloneWriterDeduplicatesRepeatedPhases(t *testing.T) {
	w, pub := cloneWriterFixture()

	// Carriage-return rewrites produce the same phase many times over.
	for i := 0; i < 5; i++ {
		_, _ = w.Write([]byte("Receiving objects: 50% (1/2)\r"))
	}
	w.Flush()

	if got := pub.snapshot(); len(got) != 1 || got[0] != "40" {
		t.Fatalf("published %v, want one 40", got)
	}
}

func TestCloneWriterIgnoresRegressions(t *testing.T) {
	w, pub := cloneWriterFixture()

	_, _ = w.Write([]byte("Resolving deltas: 50%\n"))
	_, _ = w.Write([]byte("remote: Total 500\n"))
	w.Flush()

	if got := pub.snapshot(); len(got) != 1 || got[0] != "45" {
		t.Fatalf("published %v, want only 45", got)
	}
}

func TestCloneWriterHandlesSplitWrites(t *testing.T) {
	w, pub := cloneWriterFixture()

	_, _ = w.Write([]byte("Clo"))
	_, _ = w.Write([]byte("ning into 'x'"))
	_, _ = w.Write([]byte("...\n"))

	if got := pub.snapshot(); len(got) != 1 || got[0] != "20" {
		t.Fatalf("published %v, want one 20", got)
	}
}

func TestCloneWriterFlushReportsTrailingLine(t *testing.T) {
	w, pub := cloneWriterFixture()

	_, _ = w.Write([]byte("Checking out files: done."))
	if len(pub.snapshot()) != 0 {
		t.Fatalf("unterminated line reported before flush")
	}
	w.Flush()
	if got := pub.snapshot(); len(got) != 1 || got[0] != "50" {
		t.Fatalf("published %v, want one 50", got)
	}
}
