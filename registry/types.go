package registry

import (
	"encoding/json"
)

type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

type MixNode struct {
	Host        string `json:"host"`
	Layer       uint64 `json:"layer"`
	Location    string `json:"location"`
	SphinxKey   string `json:"sphinx_key"`
	IdentityKey string `json:"identity_key"`
	Version     string `json:"version"`
}

// MixNodeBond is a mixnode registered by its owner. Owner is the record key.
type MixNodeBond struct {
	Owner   string  `json:"owner"`
	Amount  []Coin  `json:"amount"`
	MixNode MixNode `json:"mix_node"`
}

func (b MixNodeBond) encode() ([]byte, error) {
	if b.Amount == nil {
		b.Amount = []Coin{}
	}
	return json.Marshal(b)
}

// PagedResponse is one page of the mixnode listing.
type PagedResponse struct {
	Nodes []MixNodeBond `json:"nodes"`
	// PerPage is the limit the page was assembled with, not the number of nodes.
	PerPage int `json:"per_page"`
	// StartNextAfter is the owner to continue after, absent for an empty page.
	StartNextAfter *string `json:"start_next_after"`
}
