package main

import (
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteKeygenFile(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "payer.json")

	require.NoError(t, writeKeygenFile(path, key))
	loaded, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	require.NoError(t, err)
	assert.Equal(t, key, loaded)

	assert.Error(t, writeKeygenFile(path, key), "existing keys are never overwritten")
}
