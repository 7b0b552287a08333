package solana

import (
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafMine/ownership-nft/faults"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"memory without keys", Config{NetworkName: NetworkMemory}, true},
		{"devnet", Config{NetworkName: "devnet", KeyFile: "payer.json", AdminKeyFile: "admin.json"}, true},
		{"devnet without admin", Config{NetworkName: "devnet", KeyFile: "payer.json"}, false},
		{"unknown network", Config{NetworkName: "moonnet", KeyFile: "payer.json", AdminKeyFile: "admin.json"}, false},
		{"endpoint overrides network", Config{NetworkName: "moonnet", Endpoint: "http://127.0.0.1:8899", KeyFile: "a", AdminKeyFile: "b"}, true},
		{"endpoint without scheme", Config{Endpoint: "127.0.0.1:8899", KeyFile: "a", AdminKeyFile: "b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	assert.True(t, Config{NetworkName: NetworkMemory}.InMemory())
	assert.False(t, Config{NetworkName: NetworkMemory, Endpoint: "http://localhost:8899"}.InMemory())
}

func TestWsEndpoint(t *testing.T) {
	for in, out := range map[string]string{
		"http://127.0.0.1:8899":         "ws://127.0.0.1:8900",
		"https://api.devnet.solana.com": "wss://api.devnet.solana.com",
		"https://rpc.example.com:443/x": "wss://rpc.example.com:443/x",
	} {
		got, err := wsEndpoint(in)
		require.NoError(t, err)
		assert.Equal(t, out, got)
	}
}

func TestSimulationError(t *testing.T) {
	var raw interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"InstructionError":[1,{"Custom":6000}]}`), &raw))
	assert.ErrorIs(t, simulationError(raw), faults.ErrInvalidServerSigner)

	require.NoError(t, json.Unmarshal([]byte(`{"InstructionError":[1,{"Custom":6001}]}`), &raw))
	assert.ErrorIs(t, simulationError(raw), faults.ErrInvalidProgram)

	require.NoError(t, json.Unmarshal([]byte(`{"InstructionError":[1,{"Custom":42}]}`), &raw))
	err := simulationError(raw)
	assert.ErrorIs(t, err, ErrSimulationFailed)
	assert.Contains(t, err.Error(), "0x2a")

	err = simulationError("BlockhashNotFound")
	assert.ErrorIs(t, err, ErrSimulationFailed)
	assert.Contains(t, err.Error(), "BlockhashNotFound")
}

func TestConfirmationCache(t *testing.T) {
	cc := newConfirmationCache(2)
	first := Confirmation{Signature: solana.Signature{1}, Slot: 7, Fee: 10000}
	assert.Nil(t, cc.get(first.Signature))

	cc.add(first)
	got := cc.get(first.Signature)
	require.NotNil(t, got)
	assert.Equal(t, first, *got)

	// re-adding does not take a second slot
	cc.add(first)
	cc.add(Confirmation{Signature: solana.Signature{2}, Slot: 8})
	assert.NotNil(t, cc.get(first.Signature))

	cc.add(Confirmation{Signature: solana.Signature{3}, Slot: 9})
	assert.Nil(t, cc.get(first.Signature), "oldest evicted")
	assert.NotNil(t, cc.get(solana.Signature{2}))
	assert.NotNil(t, cc.get(solana.Signature{3}))
}

func TestComputeUnitLimitInstruction(t *testing.T) {
	ix := ComputeUnitLimitInstruction()
	assert.Equal(t, solana.ComputeBudget, ix.ProgramID())
	data, err := ix.Data()
	require.NoError(t, err)
	// discriminator 2 followed by the u32 limit
	assert.Equal(t, []byte{2, 0x80, 0x1a, 0x06, 0x00}, data)
}
