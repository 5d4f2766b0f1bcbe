// Package policy implements the ordered chain of checks the driver runs
// against every entry descriptor before it is materialized. Checks are
// strictly ordered: security checks (unsupported type, encryption,
// filename, path jail) always run before advisory, user-controlled
// predicates (selection, symlink behavior, filter), which in turn always
// run before resource checks (depth, size, count, cumulative size). No
// later configuration can move a check ahead of an earlier one.
//
// A check's Allow/Skip/Reject verdict is computed independently of
// logging: the driver logs a verdict after the chain has already decided
// it, and the act of logging never feeds back into the decision.
package policy

import (
	"path"
	"strings"

	"github.com/archivekit/safeunzip/internal/config"
	"github.com/archivekit/safeunzip/internal/entry"
	"github.com/archivekit/safeunzip/internal/xerrors"
)

// Verdict is the outcome of running one check against one descriptor.
type Verdict int

const (
	// Allow means the entry passes this check and the chain should
	// continue to the next one.
	Allow Verdict = iota
	// Skip means the entry should be counted as skipped and extraction
	// should move on to the next descriptor without error.
	Skip
	// Reject means extraction must abort with the accompanying error.
	Reject
)

// Totals tracks the running, per-extraction counters the resource checks
// are evaluated against. A Totals value is scoped to a single Extract*
// call and must not be reused across calls.
type Totals struct {
	FilesExtracted int
	DirsCreated    int
	EntriesSkipped int
	BytesWritten   uint64
	SeenFiles      int
}

// Result bundles a check's verdict with its error (set only for Reject)
// and an optional human reason (set for Skip, used by diagnostic logging).
type Result struct {
	Verdict Verdict
	Err     error
	Reason  string
}

func allow() Result           { return Result{Verdict: Allow} }
func skip(reason string) Result { return Result{Verdict: Skip, Reason: reason} }
func reject(err error) Result { return Result{Verdict: Reject, Err: err} }

// Input bundles everything a check needs: the raw descriptor, its jailed
// target path (empty until the jail check has run), the active policy
// configuration, and the running totals.
type Input struct {
	Descriptor entry.Descriptor
	TargetPath string
	Limits     config.Limits
	Symlink    config.SymlinkBehavior
	Selection  config.Selection
	Filter     config.FilterFunc
	Totals     *Totals
}

// CheckUnsupportedType implements policy-chain step 1.
func CheckUnsupportedType(in Input) Result {
	if in.Descriptor.IsUnsupported() {
		return reject(xerrors.UnsupportedEntryType(in.Descriptor.Name, in.Descriptor.UnsupportedKind))
	}
	return allow()
}

// CheckEncryption implements policy-chain step 2.
func CheckEncryption(in Input) Result {
	if in.Descriptor.IsEncrypted {
		return reject(xerrors.EncryptedEntry(in.Descriptor.Name))
	}
	return allow()
}

// CheckSelection implements policy-chain step 5. Directories always pass,
// so every directory entry in the archive is materialized whatever the
// selection; Only, Include and Exclude narrow non-directory entries only.
func CheckSelection(in Input) Result {
	if in.Selection.Empty() || in.Descriptor.Kind == entry.KindDirectory {
		return allow()
	}

	name := in.Descriptor.Name

	if len(in.Selection.Only) > 0 {
		if !containsExact(in.Selection.Only, name) {
			return skip("not in selection.Only")
		}
	} else if len(in.Selection.Include) > 0 {
		if !matchesAny(in.Selection.Include, name) {
			return skip("does not match any selection.Include pattern")
		}
	}

	if matchesAny(in.Selection.Exclude, name) {
		return skip("matches a selection.Exclude pattern")
	}

	return allow()
}

// CheckSymlinkBehavior implements policy-chain steps 6-7.
func CheckSymlinkBehavior(in Input) Result {
	if in.Descriptor.Kind != entry.KindSymlink {
		return allow()
	}
	switch in.Symlink {
	case config.SymlinkError:
		return reject(xerrors.SymlinkNotAllowed(in.Descriptor.Name, in.Descriptor.LinkTarget))
	default: // config.SymlinkSkip
		return skip("symlinks are skipped by policy")
	}
}

// CheckFilter implements policy-chain step 8.
func CheckFilter(in Input) Result {
	if in.Filter == nil {
		return allow()
	}
	if !in.Filter(in.Descriptor) {
		return skip("rejected by user filter")
	}
	return allow()
}

// CheckDepth implements policy-chain step 9.
func CheckDepth(in Input) Result {
	depth := strings.Count(strings.Trim(in.Descriptor.Name, "/"), "/") + 1
	if depth > in.Limits.MaxPathDepth {
		return reject(xerrors.PathTooDeep(in.Descriptor.Name, depth, in.Limits.MaxPathDepth))
	}
	return allow()
}

// CheckFileSize implements policy-chain step 10.
func CheckFileSize(in Input) Result {
	if in.Descriptor.Kind != entry.KindFile {
		return allow()
	}
	if in.Descriptor.DeclaredSize > in.Limits.MaxSingleFile {
		return reject(xerrors.FileTooLarge(in.Descriptor.Name, in.Descriptor.DeclaredSize, in.Limits.MaxSingleFile))
	}
	return allow()
}

// CheckFileCount implements policy-chain step 11.
func CheckFileCount(in Input) Result {
	if in.Descriptor.Kind == entry.KindDirectory {
		return allow()
	}
	attempted := in.Totals.SeenFiles + 1
	if attempted > in.Limits.MaxFileCount {
		return reject(xerrors.FileCountExceeded(uint64(in.Limits.MaxFileCount), attempted))
	}
	return allow()
}

// CheckCumulativeSize implements policy-chain step 12.
func CheckCumulativeSize(in Input) Result {
	wouldBe := in.Totals.BytesWritten + in.Descriptor.DeclaredSize
	if wouldBe > in.Limits.MaxTotalBytes {
		return reject(xerrors.TotalSizeExceeded(in.Limits.MaxTotalBytes, wouldBe))
	}
	return allow()
}

// SecurityChecks runs, in order, the two type/content checks that can
// never be bypassed by configuration (steps 1-2 of 1-4; the other two,
// filename sanitization and the path jail, run separately in the driver
// since only the jail produces TargetPath).
var SecurityChecks = []func(Input) Result{
	CheckUnsupportedType,
	CheckEncryption,
}

// AdvisoryChecks runs, in order, the user-controlled predicates (steps
// 5-8).
var AdvisoryChecks = []func(Input) Result{
	CheckSelection,
	CheckSymlinkBehavior,
	CheckFilter,
}

// ResourceChecks runs, in order, the resource checks (steps 9-12).
var ResourceChecks = []func(Input) Result{
	CheckDepth,
	CheckFileSize,
	CheckFileCount,
	CheckCumulativeSize,
}

// Run evaluates a list of checks in order against in, stopping at the
// first non-Allow verdict.
func Run(checks []func(Input) Result, in Input) Result {
	for _, check := range checks {
		if result := check(in); result.Verdict != Allow {
			return result
		}
	}
	return allow()
}

func containsExact(set []string, name string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
