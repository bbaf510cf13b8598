// Package lcom computes the Lack of Cohesion of Methods metric for a single
// type: the number of method pairs that share no data member minus the
// number that share one, floored at zero.
//
// The engine is pure. It never mutates its input, keeps no state between
// calls and is safe for concurrent use.
package lcom

import "github.com/panbanda/lcom/pkg/typemodel"

// Calculator computes LCOM under a fixed pair of policies.
type Calculator struct {
	inheritance InheritancePolicy
	backing     BackingFieldPolicy
}

// Option is a functional option for configuring Calculator.
type Option func(*Calculator)

// WithInheritancePolicy sets how inherited methods are treated.
func WithInheritancePolicy(p InheritancePolicy) Option {
	return func(c *Calculator) {
		c.inheritance = p
	}
}

// WithBackingFieldPolicy sets how direct backing field access is attributed.
func WithBackingFieldPolicy(p BackingFieldPolicy) Option {
	return func(c *Calculator) {
		c.backing = p
	}
}

// New creates a calculator. Defaults are strict inheritance and backing
// field attribution to the owning property.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		inheritance: InheritStrict,
		backing:     BackingFieldAttribute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InheritancePolicy returns the configured inheritance policy.
func (c *Calculator) InheritancePolicy() InheritancePolicy { return c.inheritance }

// BackingFieldPolicy returns the configured backing field policy.
func (c *Calculator) BackingFieldPolicy() BackingFieldPolicy { return c.backing }

// Result is the full breakdown behind one metric value.
type Result struct {
	Type    *typemodel.Type
	Members []DataMember
	Methods []*typemodel.Method
	Usage   []UsageVector // index-aligned with Methods
	Counts
}

// MemberNames returns the member names in bit order.
func (r *Result) MemberNames() []string {
	names := make([]string, len(r.Members))
	for i, m := range r.Members {
		names[i] = m.Name()
	}
	return names
}

// MethodNames returns the selected method names in analysis order.
func (r *Result) MethodNames() []string {
	names := make([]string, len(r.Methods))
	for i, m := range r.Methods {
		names[i] = m.Name
	}
	return names
}

// Analyze validates t and returns the complete breakdown.
func (c *Calculator) Analyze(t *typemodel.Type) (*Result, error) {
	if err := validate(t); err != nil {
		return nil, err
	}

	members := Classify(t, c.backing)
	methods := SelectMethods(t, c.inheritance)
	usage := BuildUsage(members, methods)

	return &Result{
		Type:    t,
		Members: members,
		Methods: methods,
		Usage:   usage,
		Counts:  Count(usage),
	}, nil
}

// Compute validates t and returns its LCOM value.
func (c *Calculator) Compute(t *typemodel.Type) (int, error) {
	r, err := c.Analyze(t)
	if err != nil {
		return 0, err
	}
	return r.LCOM, nil
}

// ComputeLackOfCohesion returns the LCOM value of t using the default
// policies.
func ComputeLackOfCohesion(t *typemodel.Type) (int, error) {
	return New().Compute(t)
}
