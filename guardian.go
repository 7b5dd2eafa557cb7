// Authorization: guardian resolution and credential checking.
//
// Grounded on server/guardian.c's check_guardian/lookup_guardian_record/
// check_credentials/transform_guardian_record, per spec.md §4.2, §4.7.
package rwhois

import (
	"golang.org/x/crypto/bcrypt"
)

// AuthRequest carries the credentials a client supplied with one request.
// A zero-value AuthRequest means the client sent none.
type AuthRequest struct {
	Scheme string
	Info   string
}

func normalizeScheme(scheme string) string {
	switch scheme {
	case "pw", "passwd", "password":
		return "pw"
	default:
		return scheme
	}
}

// IsGuardianRecord reports whether rec is an instance of the Guardian
// class, mirroring is_guardian_record.
func IsGuardianRecord(class *Class) bool {
	return class.Name == "Guardian"
}

// TransformGuardianRecord rewrites a new or modified Guardian record's
// Guard-Scheme and Guard-Info values before it is committed: scheme
// aliases collapse to "pw", and a crypt-pw scheme's info is hashed.
// bcrypt stands in for the original's crypt(3) call — see DESIGN.md.
// Non-Guardian records pass through untouched.
func TransformGuardianRecord(rec *Record, class *Class) error {
	if !IsGuardianRecord(class) {
		return nil
	}
	schemeAttr := class.Attribute("Guard-Scheme")
	infoAttr := class.Attribute("Guard-Info")
	if schemeAttr == nil || infoAttr == nil {
		return newErr(KindSchema, "Guardian class missing Guard-Scheme/Guard-Info", nil)
	}

	scheme := ""
	for i := range rec.Pairs {
		if rec.Pairs[i].Attr.GlobalID == schemeAttr.GlobalID {
			scheme = normalizeScheme(rec.Pairs[i].Value)
			rec.Pairs[i].Value = scheme
		}
	}
	if scheme != "crypt-pw" {
		return nil
	}
	for i := range rec.Pairs {
		if rec.Pairs[i].Attr.GlobalID == infoAttr.GlobalID {
			hash, err := bcrypt.GenerateFromPassword([]byte(rec.Pairs[i].Value), bcrypt.DefaultCost)
			if err != nil {
				return newErr(KindValidation, "hash guard-info", err)
			}
			rec.Pairs[i].Value = string(hash)
		}
	}
	return nil
}

// checkCredentials reports whether req satisfies guard's stated scheme,
// mirroring check_credentials.
func checkCredentials(guard *Record, class *Class, req *AuthRequest) bool {
	if req == nil {
		return false
	}
	schemeAttr := class.Attribute("Guard-Scheme")
	infoAttr := class.Attribute("Guard-Info")
	if schemeAttr == nil || infoAttr == nil {
		return false
	}
	guardScheme, ok := guard.Get(schemeAttr)
	if !ok {
		return false
	}
	guardScheme = normalizeScheme(guardScheme)
	if req.Scheme != guardScheme {
		return false
	}
	guardInfo, ok := guard.Get(infoAttr)
	if !ok {
		return false
	}

	switch req.Scheme {
	case "pw":
		return req.Info == guardInfo
	case "crypt-pw":
		return bcrypt.CompareHashAndPassword([]byte(guardInfo), []byte(req.Info)) == nil
	default:
		return false
	}
}

// GuardianLookup resolves a guardian reference (an ID value) to its
// Guardian record within aa, mirroring lookup_guardian_record. A missing
// Guardian class, a class with no ID-searchable attribute, or a search
// returning nothing is reported as ok=false — the stale-link case the
// caller logs and skips.
func GuardianLookup(aa *AuthorityArea, openReg func(*Class) (*FileRegistry, error), guardID string, cfg Config) (*Record, bool, error) {
	if guardID == "" {
		return nil, false, nil
	}
	class := aa.Class("Guardian")
	if class == nil {
		return nil, false, nil
	}
	idAttr := class.Attribute("ID")
	if idAttr == nil {
		return nil, false, nil
	}

	reg, err := openReg(class)
	if err != nil {
		return nil, false, err
	}

	q := &Query{Clauses: []*Term{{AttrName: "ID", Compare: CompareFull, Value: guardID}}}
	recs, err := ExecuteQuery(reg, class, q, cfg)
	if err != nil {
		return nil, false, err
	}
	if len(recs) == 0 {
		return nil, false, nil
	}
	return recs[0], true, nil
}

// isRecordGuarded reports whether rec requires authorization at all,
// mirroring is_record_guarded: a Guardian record is always guarded, as is
// any record in an authority area carrying guardians, or that itself
// names a Guardian attribute.
func isRecordGuarded(rec *Record, class *Class) bool {
	if len(rec.Pairs) == 0 {
		return false
	}
	if IsGuardianRecord(class) {
		return true
	}
	if rec.AuthArea != nil && len(rec.AuthArea.Guardians) > 0 {
		return true
	}
	if class.Attribute("Guardian") != nil {
		if _, ok := rec.Get(class.Attribute("Guardian")); ok {
			return true
		}
	}
	return false
}

// CheckGuardian reports whether req authorizes an operation on rec,
// mirroring check_guardian's three guardian sources in order: the
// record's own Guardian attribute references, the authority area's
// guardian list, and — for a Guardian record with no resolvable Guardian
// attribute reference, whatever the authority area's list holds — itself.
// secure mirrors get_rwhois_secure_mode: outside secure mode, a guarded
// object with a resolvable guardian always fails (credentials are never
// requested or checked), matching the original's refusal to even attempt
// authorization without the security layer enabled.
func CheckGuardian(rec *Record, class *Class, req *AuthRequest, aa *AuthorityArea, openReg func(*Class) (*FileRegistry, error), cfg Config, secure bool, logf func(string, ...any)) (bool, error) {
	if !isRecordGuarded(rec, class) {
		return true, nil
	}

	guardianAttr := class.Attribute("Guardian")
	foundGuardAttr := false

	if guardianAttr != nil {
		for _, guardID := range rec.All(guardianAttr) {
			guard, ok, err := GuardianLookup(aa, openReg, guardID, cfg)
			if err != nil {
				return false, err
			}
			if !ok {
				if logf != nil {
					logf("stale guardian link %q in object %q", guardID, rec.ID)
				}
				continue
			}
			foundGuardAttr = true
			if !secure {
				return false, nil
			}
			guardClass := aa.Class("Guardian")
			if checkCredentials(guard, guardClass, req) {
				return true, nil
			}
		}
	}

	if aa != nil {
		for _, guardID := range aa.Guardians {
			guard, ok, err := GuardianLookup(aa, openReg, guardID, cfg)
			if err != nil {
				return false, err
			}
			if !ok {
				if logf != nil {
					logf("stale guardian link %q for authority area %q", guardID, aa.Name)
				}
				continue
			}
			if !secure {
				return false, nil
			}
			guardClass := aa.Class("Guardian")
			if checkCredentials(guard, guardClass, req) {
				return true, nil
			}
		}
	}

	if !foundGuardAttr && IsGuardianRecord(class) {
		if !secure {
			return false, nil
		}
		if checkCredentials(rec, class, req) {
			return true, nil
		}
	}

	return false, nil
}
