package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("program")

	first := gen.Next()
	second := gen.Next()

	if first != "program-1" || second != "program-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
}

func TestIDGeneratorReset(t *testing.T) {
	gen := NewIDGenerator("")
	_ = gen.Next()
	gen.Reset("speaker")

	if next := gen.Next(); next != "speaker-1" {
		t.Fatalf("expected speaker-1 after reset, got %q", next)
	}

	var missing *IDGenerator
	if id := missing.NextFunc()(); id != "" {
		t.Fatalf("expected empty id from nil generator, got %q", id)
	}
}
