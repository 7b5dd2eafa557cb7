// Record validation: required attributes, repeat counts, format
// constraints. Grounded on common/validate_rec.h's check_required/
// check_repeated/check_formats/check_record, per spec.md §4.1.
package rwhois

import "fmt"

// CheckRecord validates rec against its own class's schema: every
// Required attribute must appear at least once, a non-Repeatable
// attribute must appear at most once, and every value must satisfy its
// attribute's Format, if any. findAll collects every violation instead of
// failing on the first, mirroring VALIDATE_FIND_ALL.
func CheckRecord(rec *Record, findAll bool) error {
	var errs []error

	if err := checkRequired(rec); err != nil {
		if !findAll {
			return err
		}
		errs = append(errs, err)
	}
	if err := checkRepeated(rec); err != nil {
		if !findAll {
			return err
		}
		errs = append(errs, err)
	}
	if err := checkFormats(rec); err != nil {
		if !findAll {
			return err
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return newErr(KindValidation, fmt.Sprintf("%d validation error(s)", len(errs)), errs[0])
}

func checkRequired(rec *Record) error {
	for _, attr := range rec.Class.Attributes {
		if !attr.Required {
			continue
		}
		if _, ok := rec.Get(attr); !ok {
			return newErr(KindValidation, "missing required attribute: "+attr.Name, ErrMissingRequired)
		}
	}
	return nil
}

func checkRepeated(rec *Record) error {
	counts := map[int]int{}
	for _, p := range rec.Pairs {
		counts[p.Attr.GlobalID]++
	}
	for _, attr := range rec.Class.Attributes {
		if attr.Repeatable {
			continue
		}
		if counts[attr.GlobalID] > 1 {
			return newErr(KindValidation, "attribute repeated but not repeatable: "+attr.Name, ErrRepeatNotAllowed)
		}
	}
	return nil
}

func checkFormats(rec *Record) error {
	for _, p := range rec.Pairs {
		if p.Attr.Format == nil {
			continue
		}
		if !p.Attr.Format.Validate(p.Value) {
			return newErr(KindValidation, "value does not match format for "+p.Attr.Name, ErrFormatMismatch)
		}
	}
	return nil
}
