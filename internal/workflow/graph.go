package workflow

import (
	"fmt"

	"github.com/google/uuid"
)

// NewWorkflowGraph creates a new workflow graph
func NewWorkflowGraph() *WorkflowGraph {
	return &WorkflowGraph{
		Nodes: make(map[string]*WorkflowNode),
		Edges: make(map[string][]string),
	}
}

// AddNode adds a new node to the graph in a thread-safe manner
func (g *WorkflowGraph) AddNode(step Step) *WorkflowNode {
	g.Lock()
	defer g.Unlock()

	node := &WorkflowNode{
		ID:       uuid.New().String(),
		Step:     step,
		Status:   NodeStatusPending,
		Inputs:   make(map[string]interface{}),
		Outputs:  make(map[string]string),
		Metadata: make(map[string]interface{}),
	}
	g.Nodes[node.ID] = node
	g.order = append(g.order, node.ID)
	return node
}

// AddEdge adds a directed edge between two nodes in a thread-safe manner.
// Duplicate edges are ignored.
func (g *WorkflowGraph) AddEdge(fromID, toID string) error {
	g.Lock()
	defer g.Unlock()

	if _, exists := g.Nodes[fromID]; !exists {
		return fmt.Errorf("source node %s does not exist", fromID)
	}
	if _, exists := g.Nodes[toID]; !exists {
		return fmt.Errorf("destination node %s does not exist", toID)
	}
	if fromID == toID {
		return fmt.Errorf("node %s cannot depend on itself", fromID)
	}

	for _, id := range g.Edges[fromID] {
		if id == toID {
			return nil
		}
	}
	g.Edges[fromID] = append(g.Edges[fromID], toID)
	return nil
}

// NodeByName returns the node running the named step
func (g *WorkflowGraph) NodeByName(name string) (*WorkflowNode, bool) {
	g.RLock()
	defer g.RUnlock()

	for _, id := range g.order {
		if n := g.Nodes[id]; n.Step.Name == name {
			return n, true
		}
	}
	return nil, false
}

// TopologicalSort returns node ids in dependency order. Among nodes that
// are ready at the same time, the one added first comes first, so the
// order is stable across runs.
func (g *WorkflowGraph) TopologicalSort() ([]string, error) {
	g.RLock()
	defer g.RUnlock()

	inDegree := make(map[string]int, len(g.Nodes))
	for _, id := range g.order {
		inDegree[id] += 0
		for _, to := range g.Edges[id] {
			inDegree[to]++
		}
	}

	done := make(map[string]bool, len(g.Nodes))
	order := make([]string, 0, len(g.Nodes))
	for len(order) < len(g.order) {
		progressed := false
		for _, id := range g.order {
			if done[id] || inDegree[id] > 0 {
				continue
			}
			done[id] = true
			order = append(order, id)
			for _, to := range g.Edges[id] {
				inDegree[to]--
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, fmt.Errorf("cycle detected in workflow graph")
		}
	}
	return order, nil
}

// GetNodeDependencies returns all nodes that must complete before the given node
func (g *WorkflowGraph) GetNodeDependencies(nodeID string) []string {
	g.RLock()
	defer g.RUnlock()
	return g.dependencies(nodeID)
}

func (g *WorkflowGraph) dependencies(nodeID string) []string {
	deps := make([]string, 0)
	for _, fromID := range g.order {
		for _, toID := range g.Edges[fromID] {
			if toID == nodeID {
				deps = append(deps, fromID)
			}
		}
	}
	return deps
}

// CanExecuteNode checks if a node is ready to be executed
func (g *WorkflowGraph) CanExecuteNode(nodeID string) bool {
	g.RLock()
	defer g.RUnlock()

	for _, depID := range g.dependencies(nodeID) {
		if g.Nodes[depID].Status != NodeStatusComplete {
			return false
		}
	}
	return true
}
