package ot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionWireFormat(t *testing.T) {
	tx := Transaction{
		StartingState: st(1, 4, 2),
		Inserts:       []InsertOp{{Position: 3, Value: "ee", State: st(2, 1, 1)}},
		Deletes:       []DeleteOp{{Position: 1, Length: 0, State: st(2, 2, 2)}},
	}

	data, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"starting_state": {"site_id": 1, "local_time": 4, "remote_time": 2},
		"inserts": [{"position": 3, "value": "ee", "state": {"site_id": 2, "local_time": 1, "remote_time": 1}}],
		"deletes": [{"position": 1, "length": 0, "state": {"site_id": 2, "local_time": 2, "remote_time": 2}}]
	}`, string(data))

	var back Transaction
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, tx, back)
}

func TestTransactionWireFormatNulls(t *testing.T) {
	// A null starting state and null sequences are the empty transaction.
	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"starting_state": null, "inserts": null, "deletes": null}`), &tx))
	assert.Nil(t, tx.StartingState)
	assert.True(t, tx.Empty())
}

func TestTransactionClone(t *testing.T) {
	tx := Transaction{
		StartingState: st(1, 1, 1),
		Inserts:       []InsertOp{{Position: 0, Value: "x", State: st(1, 2, 2)}},
	}
	c := tx.Clone()
	c.StartingState.LocalTime = 99
	c.Inserts[0].State.LocalTime = 99
	c.Inserts[0].Position = 5

	assert.Equal(t, 1, tx.StartingState.LocalTime)
	assert.Equal(t, 2, tx.Inserts[0].State.LocalTime)
	assert.Equal(t, 0, tx.Inserts[0].Position)
}
