// Query planning: attribute-name resolution and policy enforcement.
//
// Grounded on mkdb/search.c's rebuild_query (global-id resolution across
// the whole authority area's schema) and check_query_complexity (the
// wildcard/substring/negation policy gate), per spec.md §4.6, §8.
package rwhois

// planQuery resolves every Term's AttrName to a GlobalID by scanning the
// authority area's classes, mirroring rebuild_query's
// find_global_attr_by_name. A Term naming an attribute that exists
// nowhere in aa's schema makes the whole query unresolvable.
func planQuery(q *Query, aa *AuthorityArea) error {
	for _, clause := range q.Clauses {
		if err := planTerm(clause, aa); err != nil {
			return err
		}
		for _, and := range clause.And {
			if err := planTerm(and, aa); err != nil {
				return err
			}
		}
	}
	return nil
}

func planTerm(t *Term, aa *AuthorityArea) error {
	if t.AttrName == "" {
		t.GlobalID = AnyAttribute
		return nil
	}
	for _, c := range aa.Classes() {
		if a := c.Attribute(t.AttrName); a != nil {
			t.GlobalID = a.GlobalID
			return nil
		}
	}
	return ErrUnknownAttribute
}

// checkQueryPolicy enforces the server's QueryPolicy against every term,
// mirroring check_query_complexity: a disallowed wildcard, substring, or
// negated compare rejects the whole query with QUERY_TOO_COMPLEX.
func checkQueryPolicy(q *Query, policy QueryPolicy) error {
	for _, clause := range q.Clauses {
		if err := checkTermPolicy(clause, policy); err != nil {
			return err
		}
		for _, and := range clause.And {
			if err := checkTermPolicy(and, policy); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkTermPolicy(t *Term, policy QueryPolicy) error {
	if !policy.AllowWildcard && (t.SearchType != SearchBinary || t.Compare != CompareFull) {
		return ErrQueryTooComplex
	}
	if !policy.AllowSubstring && t.SearchType == SearchFullScan && t.Compare == CompareSubstring {
		return ErrQueryTooComplex
	}
	if !policy.AllowNegated && t.Negated {
		return ErrQueryTooComplex
	}
	return nil
}
