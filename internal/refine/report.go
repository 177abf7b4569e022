package refine

import (
	"errors"
	"fmt"

	"github.com/samcharles93/subdiv/internal/tables"
)

// ErrEditUnsupported marks edit operations the dispatcher recognises but
// does not execute.
var ErrEditUnsupported = errors.New("refine: edit operation not implemented")

// SkippedEdit records an edit table that was not applied at one level.
type SkippedEdit struct {
	Table    int
	Level    int
	Op       tables.EditOp
	Vertices int
}

// Report summarises one Refine call.
type Report struct {
	Scheme  tables.Scheme
	Backend string
	// Levels is the finest level completed.
	Levels   int
	Vertices int
	Launches int
	// EditsApplied counts edit table applications, one per table per level.
	EditsApplied int
	Unsupported  []SkippedEdit
}

// Err reports skipped edits as an error wrapping ErrEditUnsupported, or nil.
func (r *Report) Err() error {
	if r == nil || len(r.Unsupported) == 0 {
		return nil
	}
	first := r.Unsupported[0]
	return fmt.Errorf("%w: %d %s edit application(s) skipped, first is table %d at level %d",
		ErrEditUnsupported, len(r.Unsupported), first.Op, first.Table, first.Level)
}
