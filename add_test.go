package rwhois

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

func newTestAuthArea(t *testing.T, className, dbDir string, attrs []*AttributeDef) (*AuthorityArea, *Class) {
	t.Helper()
	reg := NewRegistry()
	aa, err := reg.RegisterAuthorityArea("TEST", Primary, t.TempDir())
	if err != nil {
		t.Fatalf("RegisterAuthorityArea: %v", err)
	}
	class, err := reg.RegisterClass(aa, className, dbDir, attrs, "")
	if err != nil {
		t.Fatalf("RegisterClass: %v", err)
	}
	return aa, class
}

func mustParse(t *testing.T, text string) *AnonymousRecord {
	t.Helper()
	anon, result, err := ParseRecord(bufio.NewReader(strings.NewReader(text)))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if result != ParseOK {
		t.Fatalf("ParseRecord result = %v, want ParseOK", result)
	}
	return anon
}

// TestCheckAddThenCommitAssignsID exercises the full Add path against a
// real on-disk data/index directory: CheckAdd binds and validates, and
// CommitAdd assigns an ID/Updated stamp, appends a data file, and
// rebuilds the class's indexes.
func TestCheckAddThenCommitAssignsID(t *testing.T) {
	dbDir := t.TempDir()
	nameAttr := &AttributeDef{Name: "Name", LocalID: 1, PrimaryKey: true, Required: true, Index: IndexExact}
	idAttr := &AttributeDef{Name: "ID", LocalID: 2, Type: TypeID}
	_, class := newTestAuthArea(t, "Contact", dbDir, []*AttributeDef{nameAttr, idAttr})
	aa := class.AuthArea

	reg, err := OpenFileRegistry(dbDir)
	if err != nil {
		t.Fatalf("OpenFileRegistry: %v", err)
	}

	anon := mustParse(t, "Name:Jane Doe\n---\n")
	rec, err := CheckAdd(context.Background(), anon, class, aa, reg, "jane@example.com", Config{})
	if err != nil {
		t.Fatalf("CheckAdd: %v", err)
	}
	if rec.ID != "" {
		t.Errorf("CheckAdd produced a non-empty ID before Commit: %q", rec.ID)
	}

	if err := CommitAdd(reg, class, rec, t.TempDir(), Config{}); err != nil {
		t.Fatalf("CommitAdd: %v", err)
	}
	if rec.ID == "" || !strings.HasSuffix(rec.ID, ".TEST") {
		t.Errorf("CommitAdd did not assign an ID with the auth area suffix: %q", rec.ID)
	}
	if aa.Serial == "" {
		t.Errorf("CommitAdd did not bump the authority area's SOA serial")
	}
}

// TestCheckAddRejectsDuplicatePrimaryKey verifies the uniqueness
// pre-check refuses a second record sharing a primary-key value with one
// already committed.
func TestCheckAddRejectsDuplicatePrimaryKey(t *testing.T) {
	dbDir := t.TempDir()
	nameAttr := &AttributeDef{Name: "Name", LocalID: 1, PrimaryKey: true, Required: true, Index: IndexExact}
	_, class := newTestAuthArea(t, "Contact", dbDir, []*AttributeDef{nameAttr})
	aa := class.AuthArea

	reg, err := OpenFileRegistry(dbDir)
	if err != nil {
		t.Fatalf("OpenFileRegistry: %v", err)
	}

	first := mustParse(t, "Name:Jane Doe\n---\n")
	rec, err := CheckAdd(context.Background(), first, class, aa, reg, "", Config{})
	if err != nil {
		t.Fatalf("CheckAdd (first): %v", err)
	}
	if err := CommitAdd(reg, class, rec, t.TempDir(), Config{}); err != nil {
		t.Fatalf("CommitAdd (first): %v", err)
	}

	second := mustParse(t, "Name:Jane Doe\n---\n")
	if _, err := CheckAdd(context.Background(), second, class, aa, reg, "", Config{}); err == nil {
		t.Errorf("CheckAdd accepted a duplicate primary-key value")
	}
}

// TestCommitAddLocksDataFileAfterIndexing verifies that a data file is
// flipped to Lock==true once it has been indexed, and that a subsequent
// Add opens a fresh data file rather than appending further into it.
func TestCommitAddLocksDataFileAfterIndexing(t *testing.T) {
	dbDir := t.TempDir()
	nameAttr := &AttributeDef{Name: "Name", LocalID: 1, Required: true}
	_, class := newTestAuthArea(t, "Contact", dbDir, []*AttributeDef{nameAttr})
	aa := class.AuthArea

	reg, err := OpenFileRegistry(dbDir)
	if err != nil {
		t.Fatalf("OpenFileRegistry: %v", err)
	}

	first := mustParse(t, "Name:Jane Doe\n---\n")
	rec, err := CheckAdd(context.Background(), first, class, aa, reg, "", Config{})
	if err != nil {
		t.Fatalf("CheckAdd (first): %v", err)
	}
	if err := CommitAdd(reg, class, rec, t.TempDir(), Config{}); err != nil {
		t.Fatalf("CommitAdd (first): %v", err)
	}

	dataFiles := reg.FilesOfKind(FileData)
	if len(dataFiles) != 1 {
		t.Fatalf("data files after first commit = %d, want 1", len(dataFiles))
	}
	if !dataFiles[0].Lock {
		t.Fatalf("data file not locked after indexing")
	}
	firstFileNo := dataFiles[0].FileNo

	second := mustParse(t, "Name:John Doe\n---\n")
	rec2, err := CheckAdd(context.Background(), second, class, aa, reg, "", Config{})
	if err != nil {
		t.Fatalf("CheckAdd (second): %v", err)
	}
	if err := CommitAdd(reg, class, rec2, t.TempDir(), Config{}); err != nil {
		t.Fatalf("CommitAdd (second): %v", err)
	}

	dataFiles = reg.FilesOfKind(FileData)
	if len(dataFiles) != 2 {
		t.Fatalf("data files after second commit = %d, want 2", len(dataFiles))
	}
	for _, fd := range dataFiles {
		if !fd.Lock {
			t.Errorf("data file %d not locked after indexing", fd.FileNo)
		}
	}
	if dataFiles[0].FileNo != firstFileNo {
		t.Errorf("first data file's FileNo changed across commits: got %d, want %d", dataFiles[0].FileNo, firstFileNo)
	}
}

// TestCheckAddRejectsMissingRequired verifies schema validation runs
// before the uniqueness check.
func TestCheckAddRejectsMissingRequired(t *testing.T) {
	dbDir := t.TempDir()
	nameAttr := &AttributeDef{Name: "Name", LocalID: 1, Required: true}
	_, class := newTestAuthArea(t, "Contact", dbDir, []*AttributeDef{nameAttr})
	aa := class.AuthArea

	reg, err := OpenFileRegistry(dbDir)
	if err != nil {
		t.Fatalf("OpenFileRegistry: %v", err)
	}

	anon := mustParse(t, "ID:client-supplied-is-ignored\n---\n")
	if _, err := CheckAdd(context.Background(), anon, class, aa, reg, "", Config{}); err == nil {
		t.Errorf("CheckAdd accepted a record missing a required attribute")
	}
}
