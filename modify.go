// Modify: del-then-add with a unified Updated stamp.
//
// Grounded on server/register.c's check_mod/mod_record: a modify is
// implemented as deleting the old record (without bumping the SOA
// serial yet) and adding the new one, sharing a single generated
// Updated value between the two halves, per spec.md §4.7.
package rwhois

import (
	"context"
	"strings"
)

// CheckModify validates a modify request: the old half must resolve to a
// live record the caller is authorized to change, and the new half must
// pass the same checks an Add would (minus the uniqueness check, which
// only applies when the new primary-key values differ from the old
// record's).
func CheckModify(ctx context.Context, newAnon, oldAnon *AnonymousRecord, class *Class, aa *AuthorityArea, reg *FileRegistry, req *AuthRequest, openReg func(*Class) (*FileRegistry, error), registrantEmail string, cfg Config, secure bool, logf func(string, ...any)) (newRec, oldRec *Record, err error) {
	if aa.Type != Primary {
		return nil, nil, newErr(KindAuthorization, "authority area is not primary: "+aa.Name, nil)
	}

	oldRec, err = FindByIDAndUpdated(reg, class, oldAnon, cfg)
	if err != nil {
		return nil, nil, err
	}

	var filtered AnonymousRecord
	for _, p := range newAnon.Pairs {
		if strings.EqualFold(p.Name, "ID") || strings.EqualFold(p.Name, "Updated") {
			continue
		}
		filtered.Pairs = append(filtered.Pairs, p)
	}
	newRec, err = Translate(&filtered, class, aa, true)
	if err != nil {
		return nil, nil, err
	}
	newRec.ID = oldRec.ID
	if idAttr := class.Attribute("ID"); idAttr != nil {
		newRec.Pairs = append(newRec.Pairs, RecordPair{Attr: idAttr, Value: oldRec.ID})
	}

	if err := CheckRecord(newRec, false); err != nil {
		return nil, nil, err
	}

	if primaryKeysChanged(class, oldRec, newRec) {
		if err := checkUniqueRecord(reg, class, newRec, cfg); err != nil {
			return nil, nil, err
		}
	}

	ok, err := CheckGuardian(oldRec, class, req, aa, openReg, cfg, secure, logf)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, newErr(KindAuthorization, "not authorized to modify "+oldRec.ID, nil)
	}

	if IsGuardianRecord(class) {
		schemeAttr := class.Attribute("Guard-Scheme")
		infoAttr := class.Attribute("Guard-Info")
		if schemeAttr == nil || infoAttr == nil {
			return nil, nil, newErr(KindSchema, "Guardian class missing Guard-Scheme/Guard-Info", nil)
		}
		oldScheme, oldHasScheme := oldRec.Get(schemeAttr)
		newScheme, newHasScheme := newRec.Get(schemeAttr)
		oldInfo, oldHasInfo := oldRec.Get(infoAttr)
		newInfo, newHasInfo := newRec.Get(infoAttr)
		schemeChanged := oldHasScheme != newHasScheme || oldScheme != newScheme
		infoChanged := oldHasInfo != newHasInfo || oldInfo != newInfo
		if schemeChanged || infoChanged {
			if err := TransformGuardianRecord(newRec, class); err != nil {
				return nil, nil, err
			}
		}
	}

	newRec, err = RunExternalParser(ctx, class, ExternalParserModify, registrantEmail, oldRec, newRec)
	if err != nil {
		return nil, nil, err
	}

	return newRec, oldRec, nil
}

func primaryKeysChanged(class *Class, oldRec, newRec *Record) bool {
	for _, attr := range class.PrimaryKeys() {
		oldV, _ := oldRec.Get(attr)
		newV, _ := newRec.Get(attr)
		if oldV != newV {
			return true
		}
	}
	return false
}

// CommitModify deletes oldRec (without advancing the SOA serial) and
// then adds newRec with a shared Updated stamp, advancing the serial
// once — mirroring mod_record's del_record(..., FALSE) followed by
// add_record.
func CommitModify(reg *FileRegistry, class *Class, newRec, oldRec *Record, tmpDir string, cfg Config) error {
	if err := CommitDelete(reg, class, oldRec, false); err != nil {
		return err
	}
	return CommitAdd(reg, class, newRec, tmpDir, cfg)
}
