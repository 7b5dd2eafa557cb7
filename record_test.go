package rwhois

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/repr"
)

func contactClass() *Class {
	idAttr := &AttributeDef{Name: "ID", GlobalID: 1, Type: TypeID}
	nameAttr := &AttributeDef{Name: "Name", GlobalID: 2}
	noteAttr := &AttributeDef{Name: "Note", GlobalID: 3}
	return &Class{Name: "Contact", Attributes: []*AttributeDef{idAttr, nameAttr, noteAttr}}
}

// TestParseRecordBasic checks that a simple two-attribute record parses
// into the expected anonymous pairs, in original order.
func TestParseRecordBasic(t *testing.T) {
	input := "ID:c1.TEST\nName:Jane Doe\n---\n"
	anon, result, err := ParseRecord(bufio.NewReader(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if result != ParseOK {
		t.Fatalf("ParseRecord result = %v, want ParseOK", result)
	}

	want := []AVPair{{Name: "ID", Value: "c1.TEST"}, {Name: "Name", Value: "Jane Doe"}}
	if !reflectEqualPairs(anon.Pairs, want) {
		t.Errorf("parsed pairs mismatch\ngot:  %s\nwant: %s", repr.String(anon.Pairs), repr.String(want))
	}
}

// TestParseRecordFoldedContinuation verifies that a backslash-newline
// continuation is folded back into an embedded newline in the value.
func TestParseRecordFoldedContinuation(t *testing.T) {
	input := "Note:first line\\\nsecond line\n---\n"
	anon, _, err := ParseRecord(bufio.NewReader(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	got, ok := anon.Get("Note")
	if !ok {
		t.Fatalf("Note attribute missing from parsed record")
	}
	if got != "first line\nsecond line" {
		t.Errorf("folded value = %q, want embedded newline preserved", got)
	}
}

// TestParseRecordSoftDeleted verifies that a record whose every line is
// prefixed with '_' is reported as deleted and produces no record.
func TestParseRecordSoftDeleted(t *testing.T) {
	input := "_ID:c1.TEST\n_Name:Jane Doe\n---\n"
	anon, result, err := ParseRecord(bufio.NewReader(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if result != ParseDeleted {
		t.Errorf("ParseRecord result = %v, want ParseDeleted", result)
	}
	if anon != nil {
		t.Errorf("ParseRecord returned a non-nil record for a deleted entry")
	}
}

// TestTranslateUnknownAttributeStrict verifies Translate rejects an
// attribute name absent from the class when strict, and silently drops it
// otherwise.
func TestTranslateUnknownAttributeStrict(t *testing.T) {
	class := contactClass()
	anon := &AnonymousRecord{Pairs: []AVPair{{Name: "Bogus", Value: "x"}}}

	if _, err := Translate(anon, class, nil, true); err == nil {
		t.Errorf("Translate accepted an unknown attribute in strict mode")
	}

	rec, err := Translate(anon, class, nil, false)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(rec.Pairs) != 0 {
		t.Errorf("Translate kept an unknown attribute in lenient mode: %s", repr.String(rec.Pairs))
	}
}

// TestRecordEmitRoundTrip verifies that Emit followed by ParseRecord
// recovers the same attribute pairs, including a folded multi-line value.
func TestRecordEmitRoundTrip(t *testing.T) {
	class := contactClass()
	rec := &Record{Class: class, Pairs: []RecordPair{
		{Attr: class.Attribute("ID"), Value: "c1.TEST"},
		{Attr: class.Attribute("Note"), Value: "line one\nline two"},
	}}

	var buf bytes.Buffer
	if err := rec.Emit(&buf); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	anon, result, err := ParseRecord(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if result != ParseOK {
		t.Fatalf("ParseRecord result = %v, want ParseOK", result)
	}
	note, _ := anon.Get("Note")
	if note != "line one\nline two" {
		t.Errorf("round-tripped Note = %q", note)
	}
}

func reflectEqualPairs(a, b []AVPair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
