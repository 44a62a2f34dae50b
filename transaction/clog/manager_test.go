package clog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HayatoShiba/ppcc/transaction/txid"
)

func TestSetState(t *testing.T) {
	tests := []struct {
		name string
		txID txid.TxID
	}{
		{
			name: "txID is 1",
			txID: 1,
		},
		{
			name: "txID is 100",
			txID: 100,
		},
		{
			name: "txID is in the second page",
			txID: txsPerPage + 9,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := TestingNewManager()
			assert.Nil(t, err)

			committed, err := m.IsTxCommitted(tt.txID)
			assert.Nil(t, err)
			assert.False(t, committed)

			assert.Nil(t, m.SetStateCommitted(tt.txID))
			assert.Nil(t, m.SetStateAborted(tt.txID+1))

			committed, err = m.IsTxCommitted(tt.txID)
			assert.Nil(t, err)
			assert.True(t, committed)
			aborted, err := m.IsTxAborted(tt.txID)
			assert.Nil(t, err)
			assert.False(t, aborted)

			aborted, err = m.IsTxAborted(tt.txID + 1)
			assert.Nil(t, err)
			assert.True(t, aborted)
		})
	}
}

func TestSetStateInvalidTxID(t *testing.T) {
	m, err := TestingNewManager()
	assert.Nil(t, err)
	assert.NotNil(t, m.SetStateCommitted(txid.InvalidTxID))
}

func TestStateIsWrittenOut(t *testing.T) {
	m, err := TestingNewManager()
	assert.Nil(t, err)

	assert.Nil(t, m.SetStateCommitted(3))
	// the page is clean because it has been written out
	buf, err := m.bm.Pin(locate(3).block())
	assert.Nil(t, err)
	defer m.bm.Unpin(buf)
	assert.Equal(t, txid.InvalidTxID, buf.ModifyingTx())
}
