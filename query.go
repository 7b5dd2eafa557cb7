// Query tree: the shape the query engine plans and executes, per
// spec.md §4.6. Grounded on mkdb/search.c's query_term_struct (the
// or_list/and_list linked structure becomes a disjunction of Clauses,
// each carrying its own AND slice).
package rwhois

// SearchType selects how a Term is dispatched against an index file.
type SearchType int

const (
	SearchBinary SearchType = iota
	SearchFullScan
	SearchCIDR
)

// CompareType selects how a Term's Value is compared against an index
// entry's value.
type CompareType int

const (
	CompareFull CompareType = iota
	ComparePrefix
	CompareSubstring
)

// AnyAttribute marks a Term with no named attribute — the original's
// attribute_id == -2 sentinel, meaning "try INDEX_ALL".
const AnyAttribute = -1

// Term is one leaf of the query tree: an index search plus, optionally,
// further AND conditions checked against the fully loaded record.
type Term struct {
	AttrName   string
	GlobalID   int // set by planQuery; AnyAttribute if AttrName == ""
	SearchType SearchType
	Compare    CompareType
	Negated    bool
	Value      string
	And        []*Term
}

// Query is a disjunction of Clauses; each Clause is itself a conjunction
// (the clause's Term plus its And list).
type Query struct {
	Clauses []*Term
}
