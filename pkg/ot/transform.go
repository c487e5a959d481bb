package ot

// The four transformers below implement inclusive transformation: they
// rewrite the incoming sequence so that it can be applied after the
// existing sequence and still achieve the net result the original relative
// order would have. All of them walk both sequences in lockstep, keeping
// running totals of the buffer-length change contributed by the operations
// consumed so far, and compare heads by adjusted position. When two heads
// land on the same adjusted position the operation with the smaller site id
// is treated as earlier, which gives every site the same total order. The
// one exception is transformDeleteInsert, which ignores site ids at a tie.
//
// Emitted operations are always fresh copies; inputs are never mutated.

// transformInsertInsert incorporates the effects of the existing inserts
// into the incoming inserts.
func transformInsertInsert(incoming, existing []InsertOp) []InsertOp {
	out := make([]InsertOp, 0, len(incoming))
	incomingSize, existingSize := 0, 0
	i, j := 0, 0
	for i < len(incoming) && j < len(existing) {
		existingPos := existing[j].Position - existingSize
		incomingPos := incoming[i].Position - incomingSize
		if existingPos < incomingPos ||
			(existingPos == incomingPos && existing[j].State.SiteID < incoming[i].State.SiteID) {
			existingSize += existing[j].Increment()
			j++
			continue
		}
		op := incoming[i].Clone()
		op.Position += existingSize
		out = append(out, op)
		incomingSize += incoming[i].Increment()
		i++
	}
	for ; i < len(incoming); i++ {
		op := incoming[i].Clone()
		op.Position += existingSize
		out = append(out, op)
	}
	return out
}

// transformDeleteInsert incorporates the effects of the existing inserts
// into the incoming deletes. The scan mirrors insert-insert except at a
// position tie: an existing insert at the same adjusted position does not
// shift the delete. The delete targets characters already in the buffer,
// so text arriving exactly at its start stays in front of it.
func transformDeleteInsert(incoming []DeleteOp, existing []InsertOp) []DeleteOp {
	out := make([]DeleteOp, 0, len(incoming))
	incomingSize, existingSize := 0, 0
	i, j := 0, 0
	for i < len(incoming) && j < len(existing) {
		existingPos := existing[j].Position - existingSize
		incomingPos := incoming[i].Position - incomingSize
		if existingPos < incomingPos {
			existingSize += existing[j].Increment()
			j++
			continue
		}
		op := incoming[i].Clone()
		op.Position += existingSize
		out = append(out, op)
		incomingSize += incoming[i].Increment()
		i++
	}
	for ; i < len(incoming); i++ {
		op := incoming[i].Clone()
		op.Position += existingSize
		out = append(out, op)
	}
	return out
}

// transformInsertDelete incorporates the effects of the existing deletes
// into the incoming inserts. An insert whose target character range was
// already deleted lands at the coalesced edit point.
func transformInsertDelete(incoming []InsertOp, existing []DeleteOp) []InsertOp {
	out := make([]InsertOp, 0, len(incoming))
	incomingSize, existingSize := 0, 0
	existingEnd := 0
	i, j := 0, 0
	for i < len(incoming) && j < len(existing) {
		existingPos := existing[j].Position - existingSize
		incomingPos := incoming[i].Position - incomingSize
		if existingPos < incomingPos ||
			(existingPos == incomingPos && existing[j].State.SiteID < incoming[i].State.SiteID) {
			existingSize += existing[j].Increment()
			existingEnd = existingPos + existing[j].Length
			j++
			continue
		}
		op := incoming[i].Clone()
		if incomingPos < existingEnd {
			op.Position = existingEnd + incomingSize
		}
		op.Position += existingSize
		out = append(out, op)
		incomingSize += incoming[i].Increment()
		i++
	}
	for ; i < len(incoming); i++ {
		op := incoming[i].Clone()
		if incoming[i].Position-incomingSize < existingEnd {
			op.Position = existingEnd + incomingSize
		}
		op.Position += existingSize
		out = append(out, op)
		incomingSize += incoming[i].Increment()
	}
	return out
}

// transformDeleteDelete incorporates the effects of the existing deletes
// into the incoming deletes. This is the hardest case: the two sides may
// delete overlapping spans, so emitted deletes are clipped against the
// existing ones and an incoming delete that straddles an existing one is
// split in two. Spans removed by both sides are tracked in doubleCount so
// the already-counted portion is not subtracted twice from later positions.
// Clipping may produce zero-length deletes; they are kept.
func transformDeleteDelete(incoming, existing []DeleteOp) []DeleteOp {
	out := make([]DeleteOp, 0, len(incoming))
	var (
		incomingSize, existingSize int
		existingEnd, doubleCount   int
		pending                    *DeleteOp
	)
	i, j := 0, 0
	// A split produces a remainder that must be processed ahead of the rest
	// of the incoming sequence; pending is that single-slot lookahead.
	head := func() DeleteOp {
		if pending != nil {
			return *pending
		}
		return incoming[i]
	}
	advance := func() {
		if pending != nil {
			pending = nil
		} else {
			i++
		}
	}
	for (pending != nil || i < len(incoming)) && j < len(existing) {
		cur := head()
		existingPos := existing[j].Position + existingSize
		incomingPos := cur.Position + incomingSize
		if existingPos < incomingPos ||
			(existingPos == incomingPos && existing[j].State.SiteID < cur.State.SiteID) {
			existingSize += existing[j].Length
			existingEnd = existingPos + existing[j].Length
			j++
			continue
		}
		advance()
		op := cur.Clone()
		doubleDelta := 0
		if existingEnd > incomingPos {
			// The preceding existing delete already removed this delete's
			// prefix. Clip to whatever survives past it, possibly nothing.
			op.Position = existingEnd - incomingSize
			op.Length = max(0, cur.Length-existingEnd+incomingPos)
		}
		if incomingPos+cur.Length > existingPos {
			if incomingPos+cur.Length < existingPos+existing[j].Length {
				// Ends inside the existing delete: stop where it starts.
				op.Length = existingPos - incomingPos
			} else if incomingPos != existingPos+existing[j].Length {
				// Straddles the existing delete: keep the left gap here and
				// split off a remainder for the right gap. The remainder is
				// re-counted when it is processed, so take its length back
				// out of the running totals now.
				op.Length -= incomingPos + cur.Length - existingPos
				rest := DeleteOp{
					Position: existingPos + existing[j].Length,
					Length:   cur.Length + incomingPos - existingPos - existing[j].Length,
					State:    cur.State.Clone(),
				}
				incomingSize -= rest.Length
				doubleDelta = -rest.Length
				rest.Position -= incomingSize + cur.Length
				pending = &rest
			}
		}
		op.Position -= existingSize - doubleCount
		doubleCount += cur.Length - op.Length + doubleDelta
		incomingSize += cur.Length
		out = append(out, op)
	}
	for pending != nil || i < len(incoming) {
		cur := head()
		advance()
		op := cur.Clone()
		incomingPos := cur.Position + incomingSize
		if existingEnd > incomingPos {
			op.Position = existingEnd - incomingSize
			op.Length = max(0, cur.Length-existingEnd+incomingPos)
		}
		op.Position -= existingSize - doubleCount
		doubleCount += cur.Length - op.Length
		incomingSize += cur.Length
		out = append(out, op)
	}
	return out
}
