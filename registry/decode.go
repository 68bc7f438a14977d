package registry

import (
	"errors"
	"fmt"
	"math"
	"strings"

	insaneJSON "github.com/ozontech/insane-json"
)

var ErrInvalidBond = errors.New("invalid bond")

// DecodeBond parses a JSON encoded bond and checks it is complete.
// The returned bond owns its memory: the root goes back to the insane-json
// pool on return and its buffer is reused by the next decode.
func DecodeBond(data []byte) (MixNodeBond, error) {
	root := insaneJSON.Spawn()
	defer insaneJSON.Release(root)

	if err := root.DecodeBytes(data); err != nil {
		return MixNodeBond{}, fmt.Errorf("%w: %s", ErrInvalidBond, err)
	}
	if !root.IsObject() {
		return MixNodeBond{}, fmt.Errorf("%w: object expected", ErrInvalidBond)
	}

	bond := MixNodeBond{
		Owner: str(root.Dig("owner")),
	}

	if amount := root.Dig("amount"); amount != nil && !amount.IsNull() {
		if !amount.IsArray() {
			return MixNodeBond{}, fmt.Errorf("%w: amount must be an array", ErrInvalidBond)
		}
		coins := amount.AsArray()
		bond.Amount = make([]Coin, 0, len(coins))
		for _, c := range coins {
			if !c.IsObject() {
				return MixNodeBond{}, fmt.Errorf("%w: coin must be an object", ErrInvalidBond)
			}
			bond.Amount = append(bond.Amount, Coin{
				Denom:  str(c.Dig("denom")),
				Amount: str(c.Dig("amount")),
			})
		}
	}

	node := root.Dig("mix_node")
	if node == nil || !node.IsObject() {
		return MixNodeBond{}, fmt.Errorf("%w: mix_node object is required", ErrInvalidBond)
	}
	bond.MixNode = MixNode{
		Host:        str(node.Dig("host")),
		Location:    str(node.Dig("location")),
		SphinxKey:   str(node.Dig("sphinx_key")),
		IdentityKey: str(node.Dig("identity_key")),
		Version:     str(node.Dig("version")),
	}
	if layer := node.Dig("layer"); layer != nil {
		if !layer.IsNumber() {
			return MixNodeBond{}, fmt.Errorf("%w: layer must be a non-negative integer", ErrInvalidBond)
		}
		f := layer.AsFloat()
		if f < 0 || f != math.Trunc(f) || f > math.MaxInt64 {
			return MixNodeBond{}, fmt.Errorf("%w: layer must be a non-negative integer, got %g", ErrInvalidBond, f)
		}
		bond.MixNode.Layer = uint64(layer.AsInt())
	}

	return bond, validate(bond)
}

func str(n *insaneJSON.Node) string {
	if n == nil || !n.IsString() {
		return ""
	}
	// AsString points into the root buffer
	return strings.Clone(n.AsString())
}

func validate(b MixNodeBond) error {
	if b.Owner == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidBond)
	}
	if err := ownerCodec.Validate([]byte(b.Owner)); err != nil {
		return fmt.Errorf("%w: owner: %s", ErrInvalidBond, err)
	}
	if b.MixNode.Host == "" {
		return fmt.Errorf("%w: mix_node.host is required", ErrInvalidBond)
	}
	if b.MixNode.IdentityKey == "" {
		return fmt.Errorf("%w: mix_node.identity_key is required", ErrInvalidBond)
	}
	for _, c := range b.Amount {
		if c.Denom == "" || !isDigits(c.Amount) {
			return fmt.Errorf("%w: bad coin %q%s", ErrInvalidBond, c.Amount, c.Denom)
		}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
