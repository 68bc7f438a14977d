package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBond(t *testing.T) {
	bond, err := DecodeBond([]byte(`{
		"owner": "nym1owner",
		"amount": [{"denom": "unym", "amount": "1000"}],
		"mix_node": {
			"host": "10.0.0.1:1789",
			"layer": 2,
			"location": "Paris \"FR\"",
			"sphinx_key": "sk",
			"identity_key": "ik",
			"version": "0.10.0"
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, MixNodeBond{
		Owner:  "nym1owner",
		Amount: []Coin{{Denom: "unym", Amount: "1000"}},
		MixNode: MixNode{
			Host:        "10.0.0.1:1789",
			Layer:       2,
			Location:    `Paris "FR"`,
			SphinxKey:   "sk",
			IdentityKey: "ik",
			Version:     "0.10.0",
		},
	}, bond)
}

func TestDecodeBondRoundTrip(t *testing.T) {
	want := fixture("owner")
	data, err := want.encode()
	require.NoError(t, err)

	got, err := DecodeBond(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeBondInvalid(t *testing.T) {
	for _, doc := range []string{
		``,
		`[]`,
		`{"owner": "o"}`,
		`{"owner": "o", "mix_node": {"identity_key": "ik"}}`,
		`{"owner": "o", "mix_node": {"host": "h"}}`,
		`{"owner": "o", "amount": {}, "mix_node": {"host": "h", "identity_key": "ik"}}`,
		`{"owner": "o", "amount": [1], "mix_node": {"host": "h", "identity_key": "ik"}}`,
		`{"owner": "o", "mix_node": {"host": "h", "identity_key": "ik", "layer": "one"}}`,
		`{"owner": "o", "mix_node": {"host": "h", "identity_key": "ik", "layer": 1.5}}`,
		`{"owner": "o", "mix_node": {"host": "h", "identity_key": "ik", "layer": -1}}`,
		`{"owner": 1, "mix_node": {"host": "h", "identity_key": "ik"}}`,
	} {
		_, err := DecodeBond([]byte(doc))
		require.ErrorIs(t, err, ErrInvalidBond, doc)
	}
}

func TestDecodedBondsDoNotShareMemory(t *testing.T) {
	doc := func(owner string) []byte {
		return []byte(`{"owner": "` + owner + `", "amount": [{"denom": "unym", "amount": "7"}],` +
			`"mix_node": {"host": "` + owner + `-host", "identity_key": "ik-` + owner + `", "layer": 2}}`)
	}

	first, err := DecodeBond(doc("alice"))
	require.NoError(t, err)
	second, err := DecodeBond(doc("bobby"))
	require.NoError(t, err)

	assert.Equal(t, "alice", first.Owner)
	assert.Equal(t, "alice-host", first.MixNode.Host)
	assert.Equal(t, "ik-alice", first.MixNode.IdentityKey)
	assert.Equal(t, "unym", first.Amount[0].Denom)
	assert.Equal(t, "bobby", second.Owner)
	assert.Equal(t, "bobby-host", second.MixNode.Host)
	assert.Equal(t, uint64(2), second.MixNode.Layer)
}
