package main

import (
	"fmt"
	"strconv"
)

func parseSent(raw map[string]string) (map[string]uint64, error) {
	sent := make(map[string]uint64, len(raw))
	for peer, v := range raw {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("peer %s: %w", peer, err)
		}
		sent[peer] = n
	}
	return sent, nil
}
