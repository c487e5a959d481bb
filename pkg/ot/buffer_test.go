package ot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferApply(t *testing.T) {
	buf := NewBuffer("The quick brown fox")
	tx := Transaction{
		Inserts: []InsertOp{ins(4, "very "), ins(14, "ly"), ins(20, "u")},
		Deletes: []DeleteOp{del(2, 1), del(4, 1), del(8, 2), del(15, 2), del(19, 1)},
	}

	require.NoError(t, buf.Apply(tx))
	assert.Equal(t, "Th vry qckly brwn fx", buf.String())
	assert.Equal(t, 20, buf.Len())
}

func TestBufferApplyZeroLengthDelete(t *testing.T) {
	buf := NewBuffer("abc")
	require.NoError(t, buf.Apply(Transaction{Deletes: []DeleteOp{del(1, 0)}}))
	assert.Equal(t, "abc", buf.String())
}

func TestBufferApplyOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
	}{
		{"insert past end", Transaction{Inserts: []InsertOp{ins(9, "x")}}},
		{"delete past end", Transaction{Deletes: []DeleteOp{del(2, 5)}}},
		{"negative delete length", Transaction{Deletes: []DeleteOp{del(1, -1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewBuffer("abcde")
			err := buf.Apply(tt.tx)
			assert.ErrorIs(t, err, ErrInvariantViolation)
			assert.Equal(t, "abcde", buf.String())
		})
	}
}

func TestBufferApplyFailureLeavesContent(t *testing.T) {
	// The first insert fits but the delete does not; nothing is committed.
	buf := NewBuffer("abc")
	err := buf.Apply(Transaction{
		Inserts: []InsertOp{ins(0, "xx")},
		Deletes: []DeleteOp{del(4, 9)},
	})
	require.Error(t, err)
	assert.Equal(t, "abc", buf.String())
}
