// Package cluster manages the participation of this node in a cluster.
package cluster

import "log/slog"

// Coordinator controls whether the node takes part in cluster operations.
type Coordinator struct {
	enabled bool
	node    string
	logger  *slog.Logger
}

// Option is a function that allows configuring the Coordinator.
type Option func(*Coordinator)

// WithEnabled sets whether the node participates in a cluster.
func WithEnabled(enabled bool) Option {
	return func(c *Coordinator) {
		c.enabled = enabled
	}
}

// WithNode sets the node identifier.
func WithNode(node string) Option {
	return func(c *Coordinator) {
		c.node = node
	}
}

// WithLogger sets the logger used by the Coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger.With("component", "cluster")
	}
}

// DefaultOptions returns the default Coordinator options.
func DefaultOptions() []Option {
	return []Option{
		WithNode("single"),
		WithLogger(slog.Default()),
	}
}

// New returns a new Coordinator.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{}
	for _, opt := range append(DefaultOptions(), opts...) {
		opt(c)
	}

	return c
}

// Disable stops the node from participating in the cluster, so that an
// exclusive maintenance run can proceed.
func (c *Coordinator) Disable() {
	if !c.enabled {
		return
	}
	c.enabled = false
	c.logger.Info("disabled cluster participation", "node", c.node)
}

// Enabled returns true if the node participates in the cluster.
func (c *Coordinator) Enabled() bool {
	return c.enabled
}

// Node returns the node identifier.
func (c *Coordinator) Node() string {
	return c.node
}
