package rwhois

import "testing"

func guardianClass() *Class {
	idAttr := &AttributeDef{Name: "ID", GlobalID: 1, Type: TypeID}
	schemeAttr := &AttributeDef{Name: "Guard-Scheme", GlobalID: 2}
	infoAttr := &AttributeDef{Name: "Guard-Info", GlobalID: 3}
	return &Class{Name: "Guardian", Attributes: []*AttributeDef{idAttr, schemeAttr, infoAttr}}
}

// TestTransformGuardianRecordPlaintext verifies that a "pw" scheme's info
// is stored verbatim — only crypt-pw is hashed.
func TestTransformGuardianRecordPlaintext(t *testing.T) {
	class := guardianClass()
	rec := &Record{Class: class, Pairs: []RecordPair{
		{Attr: class.Attribute("Guard-Scheme"), Value: "passwd"},
		{Attr: class.Attribute("Guard-Info"), Value: "secret"},
	}}

	if err := TransformGuardianRecord(rec, class); err != nil {
		t.Fatalf("TransformGuardianRecord: %v", err)
	}

	scheme, _ := rec.Get(class.Attribute("Guard-Scheme"))
	if scheme != "pw" {
		t.Errorf("scheme alias not normalized: got %q", scheme)
	}
	info, _ := rec.Get(class.Attribute("Guard-Info"))
	if info != "secret" {
		t.Errorf("plaintext pw info was mutated: got %q", info)
	}
}

// TestTransformGuardianRecordCryptPw verifies crypt-pw info is hashed on
// write and that the resulting record still authorizes a matching
// credential, round-tripping through checkCredentials the way
// CheckGuardian does.
func TestTransformGuardianRecordCryptPw(t *testing.T) {
	class := guardianClass()
	rec := &Record{Class: class, ID: "guard1.TEST", Pairs: []RecordPair{
		{Attr: class.Attribute("Guard-Scheme"), Value: "crypt-pw"},
		{Attr: class.Attribute("Guard-Info"), Value: "hunter2"},
	}}

	if err := TransformGuardianRecord(rec, class); err != nil {
		t.Fatalf("TransformGuardianRecord: %v", err)
	}

	info, _ := rec.Get(class.Attribute("Guard-Info"))
	if info == "hunter2" {
		t.Fatalf("crypt-pw info was not hashed")
	}

	if !checkCredentials(rec, class, &AuthRequest{Scheme: "crypt-pw", Info: "hunter2"}) {
		t.Errorf("checkCredentials rejected the correct password")
	}
	if checkCredentials(rec, class, &AuthRequest{Scheme: "crypt-pw", Info: "wrong"}) {
		t.Errorf("checkCredentials accepted the wrong password")
	}
}

// TestCheckGuardianSelfGuardedInsecureMode verifies that outside secure
// mode, a guarded object is refused even with correct credentials — the
// original never attempts authorization without the security layer up.
func TestCheckGuardianSelfGuardedInsecureMode(t *testing.T) {
	class := guardianClass()
	rec := &Record{Class: class, ID: "guard1.TEST", Pairs: []RecordPair{
		{Attr: class.Attribute("Guard-Scheme"), Value: "pw"},
		{Attr: class.Attribute("Guard-Info"), Value: "secret"},
	}}
	aa := &AuthorityArea{Name: "TEST"}
	req := &AuthRequest{Scheme: "pw", Info: "secret"}

	ok, err := CheckGuardian(rec, class, req, aa, nil, Config{}, false, nil)
	if err != nil {
		t.Fatalf("CheckGuardian: %v", err)
	}
	if ok {
		t.Errorf("CheckGuardian authorized a guarded record outside secure mode")
	}
}

// TestCheckGuardianSelfGuardedSecureMode is the same record in secure
// mode: the right credentials pass, the wrong ones fail.
func TestCheckGuardianSelfGuardedSecureMode(t *testing.T) {
	class := guardianClass()
	rec := &Record{Class: class, ID: "guard1.TEST", Pairs: []RecordPair{
		{Attr: class.Attribute("Guard-Scheme"), Value: "pw"},
		{Attr: class.Attribute("Guard-Info"), Value: "secret"},
	}}
	aa := &AuthorityArea{Name: "TEST"}

	ok, err := CheckGuardian(rec, class, &AuthRequest{Scheme: "pw", Info: "secret"}, aa, nil, Config{}, true, nil)
	if err != nil {
		t.Fatalf("CheckGuardian: %v", err)
	}
	if !ok {
		t.Errorf("CheckGuardian refused correct credentials in secure mode")
	}

	ok, err = CheckGuardian(rec, class, &AuthRequest{Scheme: "pw", Info: "nope"}, aa, nil, Config{}, true, nil)
	if err != nil {
		t.Fatalf("CheckGuardian: %v", err)
	}
	if ok {
		t.Errorf("CheckGuardian accepted incorrect credentials")
	}
}

// TestCheckGuardianUnguardedRecord verifies a record with no guardian
// source at all is never challenged.
func TestCheckGuardianUnguardedRecord(t *testing.T) {
	class := &Class{Name: "Contact", Attributes: []*AttributeDef{{Name: "ID", GlobalID: 1, Type: TypeID}}}
	rec := &Record{Class: class, ID: "c1.TEST", Pairs: []RecordPair{
		{Attr: class.Attribute("ID"), Value: "c1.TEST"},
	}}
	aa := &AuthorityArea{Name: "TEST"}

	ok, err := CheckGuardian(rec, class, nil, aa, nil, Config{}, false, nil)
	if err != nil {
		t.Fatalf("CheckGuardian: %v", err)
	}
	if !ok {
		t.Errorf("CheckGuardian refused an unguarded record")
	}
}
