package ot

import (
	"errors"
	"fmt"
)

// Transaction is the unit of exchange between sites. StartingState is nil
// when the transaction depends on no prior history; otherwise it names the
// most recent operation the author had observed when the transaction was
// created. Inserts and Deletes are in effect order; the inserts are applied
// first, then the deletes.
type Transaction struct {
	StartingState *State     `json:"starting_state"`
	Inserts       []InsertOp `json:"inserts"`
	Deletes       []DeleteOp `json:"deletes"`
}

// Clone returns a deep copy of the transaction.
func (tx Transaction) Clone() Transaction {
	return Transaction{
		StartingState: tx.StartingState.Clone(),
		Inserts:       cloneInserts(tx.Inserts),
		Deletes:       cloneDeletes(tx.Deletes),
	}
}

// Empty reports whether the transaction carries no operations.
func (tx Transaction) Empty() bool {
	return len(tx.Inserts) == 0 && len(tx.Deletes) == 0
}

var (
	// ErrCausalityNotMet is returned when a remote transaction's starting
	// state names an operation that is not yet in local history. The caller
	// should buffer the transaction and retry after more integration; the
	// engine is left unchanged.
	ErrCausalityNotMet = errors.New("ot: causality not met")

	// ErrInvariantViolation is returned on structurally invalid input:
	// negative lengths or positions, a missing state where one is required,
	// or operations out of effect order. The engine is left unchanged.
	ErrInvariantViolation = errors.New("ot: invariant violation")
)

// validateInserts checks an insert sequence for structural problems.
// requireState demands a causal tag on every operation (remote origin).
func validateInserts(ops []InsertOp, requireState bool) error {
	prev := -1
	for i, op := range ops {
		if op.Position < 0 {
			return fmt.Errorf("%w: insert %d has negative position %d", ErrInvariantViolation, i, op.Position)
		}
		if len(op.Value) == 0 {
			return fmt.Errorf("%w: insert %d has empty value", ErrInvariantViolation, i)
		}
		if requireState && op.State == nil {
			return fmt.Errorf("%w: insert %d has no state", ErrInvariantViolation, i)
		}
		if op.Position < prev {
			return fmt.Errorf("%w: insert %d at position %d breaks effect order", ErrInvariantViolation, i, op.Position)
		}
		prev = op.Position
	}
	return nil
}

// validateDeletes checks a delete sequence for structural problems.
func validateDeletes(ops []DeleteOp, requireState bool) error {
	prev := -1
	for i, op := range ops {
		if op.Position < 0 {
			return fmt.Errorf("%w: delete %d has negative position %d", ErrInvariantViolation, i, op.Position)
		}
		if op.Length < 0 {
			return fmt.Errorf("%w: delete %d has negative length %d", ErrInvariantViolation, i, op.Length)
		}
		if requireState && op.State == nil {
			return fmt.Errorf("%w: delete %d has no state", ErrInvariantViolation, i)
		}
		if op.Position < prev {
			return fmt.Errorf("%w: delete %d at position %d breaks effect order", ErrInvariantViolation, i, op.Position)
		}
		prev = op.Position
	}
	return nil
}
