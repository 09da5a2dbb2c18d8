package topology

import "fmt"

// Validate checks structural invariants: the broker's frontend and
// backend transports must agree (eisenbahn answers both with one
// embedded server), the frontend transport kind must be tcp or ipc, every
// stage dependency must reference a stage that exists, and the stage
// graph must be acyclic.
func (c Config) Validate() error {
	if err := c.Broker.Frontend.Validate(); err != nil {
		return fmt.Errorf("topology: broker.frontend: %w", err)
	}
	if c.Broker.Frontend.Endpoint() != c.Broker.Backend.Endpoint() {
		return fmt.Errorf("topology: broker.frontend and broker.backend must resolve to the same embedded server, got %q and %q",
			c.Broker.Frontend.Endpoint(), c.Broker.Backend.Endpoint())
	}

	names := make(map[string]bool, len(c.Pipeline.Stages))
	for _, s := range c.Pipeline.Stages {
		if s.Name == "" {
			return fmt.Errorf("topology: pipeline stage with empty name")
		}
		if names[s.Name] {
			return fmt.Errorf("topology: duplicate pipeline stage %q", s.Name)
		}
		names[s.Name] = true
	}
	for _, s := range c.Pipeline.Stages {
		for _, dep := range s.DependsOn {
			if !names[dep] {
				return fmt.Errorf("topology: stage %q depends_on unknown stage %q", s.Name, dep)
			}
		}
	}

	if _, err := c.PipelineOrder(); err != nil {
		return err
	}
	return nil
}

// PipelineOrder topologically sorts the pipeline stage graph with
// Kahn's algorithm, returning stage names in an order where every
// stage's dependencies precede it. Returns an error mentioning "circular"
// if the graph contains a cycle, matching the wording the scheduler and
// topology layers share so tests and operators can grep for it.
func (c Config) PipelineOrder() ([]string, error) {
	indegree := make(map[string]int, len(c.Pipeline.Stages))
	dependents := make(map[string][]string)
	for _, s := range c.Pipeline.Stages {
		if _, ok := indegree[s.Name]; !ok {
			indegree[s.Name] = 0
		}
		for _, dep := range s.DependsOn {
			indegree[s.Name]++
			dependents[dep] = append(dependents[dep], s.Name)
		}
	}

	var queue []string
	for _, s := range c.Pipeline.Stages {
		if indegree[s.Name] == 0 {
			queue = append(queue, s.Name)
		}
	}

	var order []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, dep := range dependents[n] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(c.Pipeline.Stages) {
		return nil, fmt.Errorf("topology: pipeline stage graph has a circular dependency (cycle detected)")
	}
	return order, nil
}
