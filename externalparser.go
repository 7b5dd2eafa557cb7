// External parser hook: an optional per-class subprocess that vets (and may
// rewrite) a record before it is committed.
//
// Grounded on server/register.c's check_add/check_mod/check_del, each of
// which runs class->parse_program when set, and mkdb/parse.h's
// EXT_PARSE_OK/EXT_PARSE_FAIL status contract, per spec.md §4.1a/§4.7a.
// The subprocess wiring itself (context-bounded exec.CommandContext,
// stdout/stderr capture) follows the teacher's own use of os/exec for its
// external tooling hooks.
package rwhois

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// ExternalParserAction identifies which write operation is invoking the
// external parser, passed to the subprocess as its first argument.
type ExternalParserAction string

const (
	ExternalParserAdd    ExternalParserAction = "ADD"
	ExternalParserModify ExternalParserAction = "MOD"
	ExternalParserDelete ExternalParserAction = "DEL"
)

// extParseTimeout bounds how long a class's external parser may run before
// the write that triggered it fails with a validation-kind error. The original
// has no such bound (a hung parse_program wedges the server); we add one
// since an indefinite block is not acceptable in a concurrent Go server.
const extParseTimeout = 10 * time.Second

// RunExternalParser invokes class's configured ExternalParser command, if
// any, as a subprocess: argv is "<program> <action> <registrantEmail>", and
// stdin carries the old record (if any) followed by "---\n" followed by the
// new record (if any), each serialized the way a data file stores them. A
// present oldRec with action Add, or a present newRec with action Delete, is
// a caller error and is not sent.
//
// The subprocess's first stdout line must read "EXT_PARSE_OK" for the write
// to proceed; anything else (or a non-zero exit, or a timeout) fails the
// write with KindValidation. For Add and Modify, everything after that
// first line replaces newRec's wire form, letting the subprocess normalize
// or enrich the record — e.g. filling in a derived attribute — before it is
// parsed back with Translate.
//
// A class with no ExternalParser configured is a no-op and returns newRec
// unchanged.
func RunExternalParser(ctx context.Context, class *Class, action ExternalParserAction, registrantEmail string, oldRec, newRec *Record) (*Record, error) {
	if class.ExternalParser == "" {
		return newRec, nil
	}

	var stdin bytes.Buffer
	if oldRec != nil && action != ExternalParserAdd {
		if err := oldRec.Emit(&stdin); err != nil {
			return nil, err
		}
	}
	if newRec != nil && action != ExternalParserDelete {
		if err := newRec.Emit(&stdin); err != nil {
			return nil, err
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, extParseTimeout)
	defer cancel()

	fields := strings.Fields(class.ExternalParser)
	if len(fields) == 0 {
		return newRec, nil
	}
	args := append(append([]string{}, fields[1:]...), string(action), registrantEmail)
	cmd := exec.CommandContext(runCtx, fields[0], args...)
	cmd.Stdin = &stdin

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, newErr(KindValidation, "external parser for class "+class.Name+" failed: "+stderr.String(), err)
	}

	out := stdout.String()
	firstLine, rest, _ := strings.Cut(out, "\n")
	if strings.TrimSpace(firstLine) != "EXT_PARSE_OK" {
		return nil, newErr(KindValidation, "external parser for class "+class.Name+" rejected the record: "+strings.TrimSpace(firstLine), nil)
	}

	if action == ExternalParserDelete || strings.TrimSpace(rest) == "" {
		return newRec, nil
	}

	anon, _, err := ParseRecord(bufio.NewReader(strings.NewReader(rest)))
	if err != nil {
		return nil, newErr(KindParse, "external parser for class "+class.Name+" produced an unparsable record", err)
	}
	rewritten, err := Translate(anon, class, class.AuthArea, true)
	if err != nil {
		return nil, err
	}
	return rewritten, nil
}
