package ot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformInsertInsert(t *testing.T) {
	// Buffer: "The quick brown fox". Site 2 appends to words; site 1
	// stretches them. Incoming picks up the shifts from existing.
	incoming := stampInsertSeq(2,
		ins(3, "ee"),
		ins(11, "k"),
		ins(18, "wnwnwn"),
		ins(28, "xx!"),
	)
	existing := stampInsertSeq(1,
		ins(4, "very "),
		ins(14, "ly"),
		ins(20, "u"),
	)

	got := transformInsertInsert(incoming, existing)
	assert.Equal(t, []insView{
		{3, "ee"},
		{18, "k"},
		{26, "wnwnwn"},
		{36, "xx!"},
	}, insViews(got))
	// Inputs stay untouched.
	assert.Equal(t, 11, incoming[1].Position)
}

func TestTransformInsertInsertTieBreak(t *testing.T) {
	tests := []struct {
		name         string
		incomingSite int
		existingSite int
		want         []insView
	}{
		{"lower existing site goes first", 2, 1, []insView{{8, "b"}}},
		{"lower incoming site goes first", 1, 2, []insView{{5, "b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			incoming := stampInsertSeq(tt.incomingSite, ins(5, "b"))
			existing := stampInsertSeq(tt.existingSite, ins(5, "aaa"))
			assert.Equal(t, tt.want, insViews(transformInsertInsert(incoming, existing)))
		})
	}
}

func TestTransformDeleteInsert(t *testing.T) {
	// Buffer: "The very quickly brouwn fox" with site 2's inserts pending.
	incoming := stampDeleteSeq(1,
		del(2, 1),
		del(4, 1),
		del(8, 2),
		del(15, 2),
		del(19, 1),
	)
	existing := stampInsertSeq(2,
		ins(3, "ee"),
		ins(18, "k"),
		ins(26, "wnwnwn"),
		ins(36, "xx!"),
	)

	got := transformDeleteInsert(incoming, existing)
	assert.Equal(t, []delView{
		{2, 1},
		{6, 1},
		{10, 2},
		{18, 2},
		{28, 1},
	}, delViews(got))
}

func TestTransformInsertDelete(t *testing.T) {
	incoming := stampInsertSeq(2,
		ins(3, "ee"),
		ins(18, "k"),
		ins(26, "wnwnwn"),
		ins(36, "xx!"),
	)
	existing := stampDeleteSeq(1,
		del(2, 1),
		del(4, 1),
		del(8, 2),
		del(15, 2),
		del(19, 1),
	)

	got := transformInsertDelete(incoming, existing)
	assert.Equal(t, []insView{
		{2, "ee"},
		{14, "k"},
		{20, "wnwnwn"},
		{29, "xx!"},
	}, insViews(got))
}

func TestTransformInsertDeleteInsideDeletedSpan(t *testing.T) {
	// The insert's target character range is gone; it lands at the
	// coalesced edit point.
	incoming := stampInsertSeq(2, ins(3, "abc"))
	existing := stampDeleteSeq(1, del(2, 3))

	got := transformInsertDelete(incoming, existing)
	assert.Equal(t, []insView{{2, "abc"}}, insViews(got))
}

func TestTransformDeleteDeleteSimple(t *testing.T) {
	// Buffer: "The quick brown fox jumped over the lazy dog". The two
	// sides delete disjoint words.
	seq1 := stampDeleteSeq(1,
		del(0, 3),
		del(7, 5),
		del(12, 6),
		del(18, 3),
		del(24, 3),
	)
	seq2 := stampDeleteSeq(2,
		del(4, 5),
		del(11, 3),
		del(19, 4),
		del(24, 4),
	)

	assert.Equal(t, []delView{
		{0, 3},
		{2, 5},
		{4, 6},
		{6, 3},
		{8, 3},
	}, delViews(transformDeleteDelete(seq1, seq2)))

	assert.Equal(t, []delView{
		{1, 5},
		{3, 3},
		{5, 4},
		{7, 4},
	}, delViews(transformDeleteDelete(seq2, seq1)))
}

func TestTransformDeleteDeleteOverlap(t *testing.T) {
	// Buffer: "The quick brown fox jumped over the lazy dog". The spans
	// overlap, so deletes get clipped, split, and in places reduced to
	// zero length — the zero-length ops must survive.
	seq1 := stampDeleteSeq(2,
		del(4, 9),
		del(15, 7),
		del(20, 3),
	)
	seq2 := stampDeleteSeq(1,
		del(1, 5),
		del(2, 2),
		del(4, 4),
		del(21, 12),
	)

	assert.Equal(t, []delView{
		{1, 1},
		{1, 2},
		{10, 7},
		{11, 0},
	}, delViews(transformDeleteDelete(seq1, seq2)))

	assert.Equal(t, []delView{
		{1, 3},
		{1, 0},
		{1, 2},
		{11, 4},
		{11, 5},
	}, delViews(transformDeleteDelete(seq2, seq1)))
}

func TestTransformDeleteDeleteZeroLengthInputs(t *testing.T) {
	// Zero-length deletes on the existing side round-trip cleanly and
	// incoming deletes swallowed whole come out zero-length.
	incoming := stampDeleteSeq(1,
		del(2, 1),
		del(6, 1),
		del(10, 2),
		del(18, 2),
		del(28, 1),
	)
	existing := stampDeleteSeq(2,
		del(1, 1),
		del(1, 0),
		del(6, 3),
		del(11, 0),
	)

	got := transformDeleteDelete(incoming, existing)
	assert.Equal(t, []delView{
		{1, 1},
		{5, 0},
		{7, 2},
		{15, 2},
		{25, 1},
	}, delViews(got))
}

func TestTransformEmptySequences(t *testing.T) {
	inserts := stampInsertSeq(2, ins(3, "ee"))
	deletes := stampDeleteSeq(2, del(3, 2))

	assert.Empty(t, transformInsertInsert(nil, inserts))
	assert.Empty(t, transformDeleteDelete(nil, deletes))

	gotI := transformInsertInsert(inserts, nil)
	require.Len(t, gotI, 1)
	assert.Equal(t, inserts[0].Position, gotI[0].Position)

	gotD := transformDeleteDelete(deletes, nil)
	require.Len(t, gotD, 1)
	assert.Equal(t, deletes[0], gotD[0])
	// Emitted ops carry their own state copies.
	assert.NotSame(t, deletes[0].State, gotD[0].State)
}
