package ot

// The two swappers change execution order instead of incorporating effects:
// they rewrite two sequences so that the one that ran second can run first
// and the combined result is unchanged. The engine uses them when
// positioning a locally authored transaction ahead of the local delete
// history before it goes out on the wire.

// swapDeleteInsert reorders "deletes then inserts" into "inserts then
// deletes". Returns the repositioned inserts and deletes.
func swapDeleteInsert(deletes []DeleteOp, inserts []InsertOp) ([]InsertOp, []DeleteOp) {
	outInserts := make([]InsertOp, 0, len(inserts))
	outDeletes := make([]DeleteOp, 0, len(deletes))
	sizeI, sizeD := 0, 0
	i, j := 0, 0
	for i < len(deletes) && j < len(inserts) {
		if deletes[i].Position <= inserts[j].Position-sizeI {
			op := deletes[i].Clone()
			op.Position += sizeI
			outDeletes = append(outDeletes, op)
			sizeD += deletes[i].Length
			i++
		} else {
			op := inserts[j].Clone()
			op.Position += sizeD
			outInserts = append(outInserts, op)
			sizeI += len(inserts[j].Value)
			j++
		}
	}
	for ; i < len(deletes); i++ {
		op := deletes[i].Clone()
		op.Position += sizeI
		outDeletes = append(outDeletes, op)
	}
	for ; j < len(inserts); j++ {
		op := inserts[j].Clone()
		op.Position += sizeD
		outInserts = append(outInserts, op)
	}
	return outInserts, outDeletes
}

// swapDeleteDelete reorders "first then second" into "second then first"
// for two delete sequences. Returns (second', first') with second' now
// executing first. A second-side delete that reaches into a first-side
// delete is split; the split remainder keeps the original position and is
// processed ahead of the rest of the sequence, so second' can come out
// longer than second.
func swapDeleteDelete(first, second []DeleteOp) ([]DeleteOp, []DeleteOp) {
	outSecond := make([]DeleteOp, 0, len(second))
	outFirst := make([]DeleteOp, 0, len(first))
	sizeFirst, sizeSecond := 0, 0
	i, j := 0, 0
	var pending *DeleteOp
	head := func() DeleteOp {
		if pending != nil {
			return *pending
		}
		return second[j]
	}
	advance := func() {
		if pending != nil {
			pending = nil
		} else {
			j++
		}
	}
	for i < len(first) && (pending != nil || j < len(second)) {
		cur := head()
		if first[i].Position <= cur.Position+sizeSecond {
			op := first[i].Clone()
			op.Position -= sizeSecond
			outFirst = append(outFirst, op)
			sizeFirst += first[i].Length
			i++
			continue
		}
		advance()
		op := cur.Clone()
		if cur.Position+sizeSecond+cur.Length > first[i].Position {
			// This delete runs into the next first-side delete. Emit only
			// the part in front of it and queue the remainder.
			emitted := first[i].Position - cur.Position - sizeSecond
			rest := DeleteOp{
				Position: cur.Position,
				Length:   cur.Length - emitted,
				State:    cur.State.Clone(),
			}
			op.Length = emitted
			pending = &rest
		}
		op.Position += sizeFirst
		sizeSecond += op.Length
		outSecond = append(outSecond, op)
	}
	for ; i < len(first); i++ {
		op := first[i].Clone()
		op.Position -= sizeSecond
		outFirst = append(outFirst, op)
	}
	for pending != nil || j < len(second) {
		cur := head()
		advance()
		op := cur.Clone()
		op.Position += sizeFirst
		outSecond = append(outSecond, op)
	}
	return outSecond, outFirst
}
