package runner

import (
	"fmt"

	"github.com/aescanero/graphpool/pkg/domain/graph"
)

// Validator validates graphs before they are run
type Validator struct {
	maxNodes int
}

// NewValidator creates a validator. maxNodes <= 0 means no limit.
func NewValidator(maxNodes int) *Validator {
	return &Validator{maxNodes: maxNodes}
}

// Validate checks the graph structure and size limits
func (v *Validator) Validate(g *graph.Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}

	if v.maxNodes > 0 && g.Len() > v.maxNodes {
		return fmt.Errorf("%w: %d nodes exceeds limit of %d", graph.ErrInvalidGraph, g.Len(), v.maxNodes)
	}

	return nil
}
