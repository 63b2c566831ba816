package document

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
)

// Operation is one staged filesystem effect.
type Operation struct {
	// Write target, or copy destination, as a filesystem path.
	Path    string
	Content []byte
	// CopyFrom is set for recursive copies.
	CopyFrom string
	// Trace is the invocation that staged the operation.
	Trace source.Trace
}

// CommitError reports a staged operation that failed.
type CommitError struct {
	Op  Operation
	Err error
}

func (e *CommitError) Error() string {
	if e.Op.CopyFrom != "" {
		return fmt.Sprintf("failed to copy %s to %s: %v", e.Op.CopyFrom, e.Op.Path, e.Err)
	}
	return fmt.Sprintf("failed to write %s: %v", e.Op.Path, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Outbox stages the writes of the emit pass so that nothing reaches the
// disk unless the whole build succeeds.
type Outbox struct {
	ops    []Operation
	writes map[string]int
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{writes: make(map[string]int)}
}

// Write stages a file write.
func (o *Outbox) Write(path, content string, tr source.Trace) {
	o.ops = append(o.ops, Operation{Path: path, Content: []byte(content), Trace: tr})
	o.writes[path]++
}

// Copy stages a recursive copy.
func (o *Outbox) Copy(from, to string, tr source.Trace) {
	o.ops = append(o.ops, Operation{Path: to, CopyFrom: from, Trace: tr})
}

// Operations returns the staged operations in order.
func (o *Outbox) Operations() []Operation { return o.ops }

// WriteCount returns how many times path was staged for writing.
func (o *Outbox) WriteCount(path string) int { return o.writes[path] }

// Len returns the number of staged operations.
func (o *Outbox) Len() int { return len(o.ops) }

// Commit performs the staged operations in order.
func (o *Outbox) Commit(ctx context.Context, fs FileSystem, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for _, op := range o.ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if op.CopyFrom != "" {
			logger.Debug("copying", "from", op.CopyFrom, "to", op.Path)
			if err := fs.CopyAll(op.CopyFrom, op.Path); err != nil {
				return &CommitError{Op: op, Err: err}
			}
			continue
		}
		logger.Debug("writing", "path", op.Path, "bytes", len(op.Content))
		if err := fs.WriteFile(op.Path, op.Content); err != nil {
			return &CommitError{Op: op, Err: err}
		}
	}
	return nil
}
