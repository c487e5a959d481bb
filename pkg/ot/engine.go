package ot

import (
	"fmt"
	"log"
)

// Engine holds the operation history for one site. The history is two
// sequences kept in effect order: inserts first, then deletes; applying
// all inserts and then all deletes to an empty buffer reproduces the
// site's document.
//
// The engine is not safe for concurrent use; callers serialize access.
// Every public call either completes and commits its history update or
// returns an error leaving the engine untouched.
type Engine struct {
	siteID    int
	inserts   []InsertOp
	deletes   []DeleteOp
	lastState *State
	timeStamp int
}

// NewEngine creates an engine with empty history for the given site.
// Site ids must be unique across peers; they break ties between
// concurrent operations at the same position.
func NewEngine(siteID int) *Engine {
	return &Engine{siteID: siteID}
}

// SiteID returns the site id this engine stamps onto local operations.
func (e *Engine) SiteID() int { return e.siteID }

// LastState returns a copy of the state of the most recently merged
// operation, or nil for an empty engine. An outgoing transaction built on
// the current document should carry this as its starting state.
func (e *Engine) LastState() *State { return e.lastState.Clone() }

// History returns independent copies of the insert and delete history in
// effect order.
func (e *Engine) History() ([]InsertOp, []DeleteOp) {
	return cloneInserts(e.inserts), cloneDeletes(e.deletes)
}

// IntegrateRemote folds a transaction received from another site into
// local history and returns the transaction to apply to the local buffer.
// Returns ErrCausalityNotMet if the transaction's starting state is not in
// history yet; the caller should hold the transaction and retry after
// integrating more.
func (e *Engine) IntegrateRemote(tx Transaction) (Transaction, error) {
	if err := validateInserts(tx.Inserts, true); err != nil {
		return Transaction{}, err
	}
	if err := validateDeletes(tx.Deletes, true); err != nil {
		return Transaction{}, err
	}
	concurrent, err := e.concurrentSince(tx.StartingState, e.inserts)
	if err != nil {
		return Transaction{}, err
	}
	log.Printf("[OT] site %d integrating remote transaction: %d inserts, %d deletes, %d concurrent local inserts",
		e.siteID, len(tx.Inserts), len(tx.Deletes), len(concurrent))

	// Inserts: transform against the concurrent local inserts, then
	// against the local deletes for application. History keeps the
	// pre-delete form.
	remoteInserts := transformInsertInsert(tx.Inserts, concurrent)
	outInserts := transformInsertDelete(remoteInserts, e.deletes)
	e.stampInserts(remoteInserts)
	merged, last := mergeInserts(e.inserts, remoteInserts)
	e.inserts = merged
	if last != nil {
		e.lastState = last
	}

	// Deletes: shift the local delete history past the newly merged
	// inserts, bring the remote deletes into the same frame, and clip the
	// two delete sets against each other.
	localDeletes := transformDeleteInsert(e.deletes, remoteInserts)
	remoteDeletes := transformDeleteInsert(tx.Deletes, concurrent)
	outDeletes := transformDeleteDelete(remoteDeletes, localDeletes)
	e.stampDeletes(outDeletes)
	mergedDeletes, lastDelete := mergeDeletes(localDeletes, outDeletes)
	e.deletes = mergedDeletes
	if lastDelete != nil {
		e.lastState = lastDelete
	}

	return Transaction{
		StartingState: tx.StartingState.Clone(),
		Inserts:       outInserts,
		Deletes:       outDeletes,
	}, nil
}

// ProcessTransaction positions a locally authored transaction relative to
// history so peers can integrate it deterministically, records it in local
// history, and returns the transaction to put on the wire. The input
// operations are expressed against the current document; the output
// inserts are swapped ahead of the local delete history, and the output
// carries the pre-call last merged state as its starting state.
func (e *Engine) ProcessTransaction(tx Transaction) (Transaction, error) {
	if err := validateInserts(tx.Inserts, false); err != nil {
		return Transaction{}, err
	}
	if err := validateDeletes(tx.Deletes, false); err != nil {
		return Transaction{}, err
	}
	log.Printf("[OT] site %d processing outgoing transaction: %d inserts, %d deletes",
		e.siteID, len(tx.Inserts), len(tx.Deletes))

	outgoingState := e.lastState.Clone()
	inserts := cloneInserts(tx.Inserts)
	deletes := cloneDeletes(tx.Deletes)
	e.stampInserts(inserts)
	e.stampDeletes(deletes)

	outInserts, localDeletes := swapDeleteInsert(e.deletes, inserts)
	outDeletes, _ := swapDeleteDelete(localDeletes, deletes)

	merged, last := mergeInserts(e.inserts, outInserts)
	e.inserts = merged
	if last != nil {
		e.lastState = last
	}
	mergedDeletes, lastDelete := mergeDeletes(localDeletes, deletes)
	e.deletes = mergedDeletes
	if lastDelete != nil {
		e.lastState = lastDelete
	}

	return Transaction{
		StartingState: outgoingState,
		Inserts:       outInserts,
		Deletes:       outDeletes,
	}, nil
}

// concurrentSince returns copies of the operations in seq that are
// concurrent to the given starting state: those stamped into local history
// after the operation the starting state names. A nil starting state
// depends on nothing, so the whole sequence is concurrent.
func (e *Engine) concurrentSince(starting *State, seq []InsertOp) ([]InsertOp, error) {
	if starting == nil {
		return cloneInserts(seq), nil
	}
	localRef := -1
	for _, op := range e.inserts {
		if op.State.SiteID == starting.SiteID && op.State.RemoteTime == starting.RemoteTime {
			localRef = op.State.LocalTime
			break
		}
	}
	if localRef == -1 {
		for _, op := range e.deletes {
			if op.State.SiteID == starting.SiteID && op.State.RemoteTime == starting.RemoteTime {
				localRef = op.State.LocalTime
				break
			}
		}
	}
	if localRef == -1 {
		return nil, fmt.Errorf("%w: starting state (site %d, time %d) not in history",
			ErrCausalityNotMet, starting.SiteID, starting.RemoteTime)
	}
	var concurrent []InsertOp
	for _, op := range seq {
		if op.State.LocalTime > localRef {
			concurrent = append(concurrent, op.Clone())
		}
	}
	return concurrent, nil
}

// stampInserts assigns the next local timestamps to a sequence about to be
// merged. A fresh state is minted for locally authored operations; remote
// operations keep their author's site id and remote time.
func (e *Engine) stampInserts(ops []InsertOp) {
	for k := range ops {
		e.timeStamp++
		if ops[k].State == nil {
			ops[k].State = &State{SiteID: e.siteID, LocalTime: e.timeStamp, RemoteTime: e.timeStamp}
		} else {
			ops[k].State.LocalTime = e.timeStamp
		}
	}
}

func (e *Engine) stampDeletes(ops []DeleteOp) {
	for k := range ops {
		e.timeStamp++
		if ops[k].State == nil {
			ops[k].State = &State{SiteID: e.siteID, LocalTime: e.timeStamp, RemoteTime: e.timeStamp}
		} else {
			ops[k].State.LocalTime = e.timeStamp
		}
	}
}
