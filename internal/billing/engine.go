// Package billing is the amortization and billing engine for allotted properties.
//
// Every function here is a pure computation over the values it is given: nothing is
// cached, stored or mutated, so an Engine can be shared freely between goroutines.
package billing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Engine computes plans, late fees and service charges under a Policy
type Engine struct {
	policy Policy
}

// NewEngine creates an Engine for the given policy
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: policy}, nil
}

// Default returns an Engine running DefaultPolicy
func Default() *Engine {
	return &Engine{policy: DefaultPolicy()}
}

// Policy returns the policy the engine runs with
func (e *Engine) Policy() Policy {
	return e.policy
}
