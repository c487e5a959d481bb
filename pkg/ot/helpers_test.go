package ot

// Shared fixtures for the kernel tests. Most scenarios walk the buffer
// "The quick brown fox" or "The quick brown fox jumped over the lazy dog"
// through a pair of concurrent edit sequences with known outcomes.

func st(site, local, remote int) *State {
	return &State{SiteID: site, LocalTime: local, RemoteTime: remote}
}

func ins(pos int, value string) InsertOp {
	return InsertOp{Position: pos, Value: value}
}

func del(pos, length int) DeleteOp {
	return DeleteOp{Position: pos, Length: length}
}

// stampInsertSeq tags each op with a distinct state for the given site.
// Transform tie-breaks only look at the site id; the times just have to be
// positive and distinct.
func stampInsertSeq(site int, ops ...InsertOp) []InsertOp {
	for i := range ops {
		t := 100*site + i + 1
		ops[i].State = st(site, t, t)
	}
	return ops
}

func stampDeleteSeq(site int, ops ...DeleteOp) []DeleteOp {
	for i := range ops {
		t := 100*site + i + 1
		ops[i].State = st(site, t, t)
	}
	return ops
}

// insView and delView strip states so expected sequences can be compared
// by position and payload alone.
type insView struct {
	Pos int
	Val string
}

type delView struct {
	Pos, Len int
}

func insViews(ops []InsertOp) []insView {
	out := make([]insView, len(ops))
	for i, op := range ops {
		out[i] = insView{op.Position, op.Value}
	}
	return out
}

func delViews(ops []DeleteOp) []delView {
	out := make([]delView, len(ops))
	for i, op := range ops {
		out[i] = delView{op.Position, op.Length}
	}
	return out
}
