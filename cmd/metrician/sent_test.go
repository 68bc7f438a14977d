package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSent(t *testing.T) {
	sent, err := parseSent(map[string]string{"peer1": "10", "peer2": "0"})
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"peer1": 10, "peer2": 0}, sent)

	_, err = parseSent(map[string]string{"peer": "-1"})
	require.Error(t, err)
}
