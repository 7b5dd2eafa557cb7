// Attribute format constraints.
//
// A Format is a compiled validator for an attribute's value. The schema
// loader (out of scope) is responsible for turning a textual format
// specification into one of these; the registry only stores and applies
// the compiled form.
package rwhois

import "regexp"

// Format validates an attribute value against a constraint.
type Format struct {
	Pattern *regexp.Regexp // nil means "no constraint"
	Label   string         // human-readable name for error messages
}

// NewFormat compiles pattern (anchored automatically) into a Format.
func NewFormat(label, pattern string) (*Format, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, newErr(KindSchema, "malformed attribute format: "+label, err)
	}
	return &Format{Pattern: re, Label: label}, nil
}

// Validate reports whether value satisfies f.
func (f *Format) Validate(value string) bool {
	if f == nil || f.Pattern == nil {
		return true
	}
	return f.Pattern.MatchString(value)
}
