package rpc

import "fmt"

// ChainSpec holds the chain properties every client of the pool has to agree on
type ChainSpec struct {
	ChainID string
}

// CheckMismatch describes each property of other that differs from chain
func (chain *ChainSpec) CheckMismatch(other *ChainSpec) []string {
	mismatches := []string{}

	if chain.ChainID != other.ChainID {
		mismatches = append(mismatches, fmt.Sprintf("chain id %v, expected %v", other.ChainID, chain.ChainID))
	}

	return mismatches
}
