// Engine-wide configuration.
//
// Config mirrors the teacher's Config struct in db.go: a small, flat set of
// knobs with documented defaults, applied once at construction. The
// config-FILE reader that would populate this struct from disk is an
// external collaborator (out of scope); only the struct itself is ours.
package rwhois

import "github.com/sirupsen/logrus"

// Shard/hash algorithm selectors for the indexer's external sort. Mirrors
// the teacher's multi-algorithm hash.go.
const (
	ShardXXH3 = iota + 1
	ShardFNV1a
	ShardBlake2b
)

// QueryPolicy toggles which compare forms a query leaf may use without
// being rejected QUERY_TOO_COMPLEX. Grounded in search_prim.c's
// server-side policy checks.
type QueryPolicy struct {
	AllowWildcard   bool // leading-wildcard / PREFIX compare
	AllowSubstring  bool
	AllowNegated    bool
}

// DefaultQueryPolicy permits every compare form; deployments that want the
// stricter original behaviour set the fields they want to forbid.
var DefaultQueryPolicy = QueryPolicy{AllowWildcard: true, AllowSubstring: true, AllowNegated: true}

// Config holds per-engine tunables.
type Config struct {
	ReadBuffer    int         // buffer size for streaming scans (default 64KB)
	MaxRecordSize int         // bound on a single record/index line (default 16MB)
	SyncWrites    bool        // fsync after data-file appends and soft-deletes
	HitLimit      int         // 0 = unlimited; query engine ceiling (spec.md §4.6)
	ShardAlgorithm int        // ShardXXH3 (default), ShardFNV1a, ShardBlake2b
	NumShards     int         // number of index shard files per kind (default 1)
	Policy        QueryPolicy // which compare forms a query may use
	Logger        *logrus.Logger
}

// withDefaults returns a copy of c with zero-valued fields filled in.
func (c Config) withDefaults() Config {
	if c.ReadBuffer == 0 {
		c.ReadBuffer = 64 * 1024
	}
	if c.MaxRecordSize == 0 {
		c.MaxRecordSize = 16 * 1024 * 1024
	}
	if c.ShardAlgorithm == 0 {
		c.ShardAlgorithm = ShardXXH3
	}
	if c.NumShards == 0 {
		c.NumShards = 1
	}
	if c.Policy == (QueryPolicy{}) {
		c.Policy = DefaultQueryPolicy
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}
