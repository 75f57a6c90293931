package transport

import (
	"reflect"
	"testing"
)

func TestFrameLineAppendsNewline(t *testing.T) {
	got := FrameLine(`{"action":"ping","data":null}`)
	want := `{"action":"ping","data":null}` + "\n"

	if string(got) != want {
		t.Fatalf("expected %q, got %q", want, string(got))
	}
}

func TestLineAccumulatorByteAtATime(t *testing.T) {
	var acc LineAccumulator

	var lines []string
	for _, b := range []byte("abc\ndef\n") {
		lines = append(lines, acc.Feed([]byte{b})...)
	}

	want := []string{"abc", "def"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
}

func TestLineAccumulatorChunkBoundaries(t *testing.T) {
	var acc LineAccumulator

	var lines []string
	for _, chunk := range []string{"ab", "c\nde", "f\n"} {
		lines = append(lines, acc.Feed([]byte(chunk))...)
	}

	want := []string{"abc", "def"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
}

func TestLineAccumulatorMultipleLinesPerChunk(t *testing.T) {
	var acc LineAccumulator

	lines := acc.Feed([]byte("one\ntwo\nthree\n"))

	want := []string{"one", "two", "three"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
}

func TestLineAccumulatorHoldsPartialLine(t *testing.T) {
	var acc LineAccumulator

	if lines := acc.Feed([]byte("incomple")); len(lines) != 0 {
		t.Fatalf("expected no lines for a partial record, got %v", lines)
	}

	lines := acc.Feed([]byte("te\n"))
	if len(lines) != 1 || lines[0] != "incomplete" {
		t.Fatalf("expected [incomplete], got %v", lines)
	}
}

func TestLineAccumulatorTrimsWhitespace(t *testing.T) {
	var acc LineAccumulator

	lines := acc.Feed([]byte("  spaced  \r\n\ttabbed\t\n"))

	want := []string{"spaced", "tabbed"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
}

func TestLineAccumulatorDropsEmptyLines(t *testing.T) {
	var acc LineAccumulator

	lines := acc.Feed([]byte("\n\r\n   \nreal\n\n"))

	want := []string{"real"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
}

func TestLineAccumulatorEmptyChunk(t *testing.T) {
	var acc LineAccumulator

	if lines := acc.Feed(nil); len(lines) != 0 {
		t.Fatalf("expected no lines for an empty chunk, got %v", lines)
	}

	if lines := acc.Feed([]byte("after\n")); len(lines) != 1 || lines[0] != "after" {
		t.Fatalf("expected [after], got %v", lines)
	}
}
