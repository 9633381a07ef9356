// Package workflow defines the entity model of the node graph - typed nodes,
// directed edges, per-node execution state - and the mutation API the editor
// surface drives: add, move and delete nodes, connect and disconnect edges,
// update configuration. Deleting a node cascades to its edges and execution
// state.
package workflow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNodeNotFound is returned when an operation references a node ID
	// that is not in the current node set.
	ErrNodeNotFound = errors.New("workflow: node not found")

	// ErrEdgeNotFound is returned when an operation references an unknown
	// edge ID.
	ErrEdgeNotFound = errors.New("workflow: edge not found")

	// ErrSelfLoop is returned when connecting a node to itself.
	ErrSelfLoop = errors.New("workflow: self-loop rejected")

	// ErrDuplicateEdge is returned when an edge between the same source and
	// target pair already exists.
	ErrDuplicateEdge = errors.New("workflow: duplicate edge rejected")

	// ErrInvalidNodeType is returned when creating a node with an unknown
	// protocol kind.
	ErrInvalidNodeType = errors.New("workflow: invalid node type")
)

// Workflow owns the full graph: nodes, edges and execution states. All
// mutations go through its methods, which are safe for concurrent use so
// independent node runs can update their own state simultaneously.
type Workflow struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	nodeOrder []string
	edges     []*Edge
	states    map[string]*ExecutionState
}

// New creates an empty workflow.
func New() *Workflow {
	return &Workflow{
		nodes:     make(map[string]*Node),
		nodeOrder: make([]string, 0),
		edges:     make([]*Edge, 0),
		states:    make(map[string]*ExecutionState),
	}
}

// NodeOption customizes a node at creation time.
type NodeOption func(*Node)

// WithLabel sets the node's display label.
func WithLabel(label string) NodeOption {
	return func(node *Node) {
		node.Label = label
	}
}

// WithConfig sets the node's initial configuration.
func WithConfig(config Config) NodeOption {
	return func(node *Node) {
		node.Config = config.Clone()
	}
}

// AddNode creates a node of the given type at the given canvas position,
// together with its empty execution state. The type is immutable afterwards.
func (w *Workflow) AddNode(nodeType NodeType, position Position, opts ...NodeOption) (Node, error) {
	if !nodeType.Valid() {
		return Node{}, fmt.Errorf("%w: %q", ErrInvalidNodeType, nodeType)
	}

	node := &Node{
		ID:       uuid.NewString(),
		Type:     nodeType,
		Position: position,
		Status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(node)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.nodes[node.ID] = node
	w.nodeOrder = append(w.nodeOrder, node.ID)
	w.states[node.ID] = NewExecutionState()

	return node.copy(), nil
}

// DeleteNode removes a node, every edge touching it, and its execution state.
func (w *Workflow) DeleteNode(nodeID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.nodes[nodeID]; !exists {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	delete(w.nodes, nodeID)
	delete(w.states, nodeID)

	for index, orderedID := range w.nodeOrder {
		if orderedID == nodeID {
			w.nodeOrder = append(w.nodeOrder[:index], w.nodeOrder[index+1:]...)
			break
		}
	}

	kept := w.edges[:0]
	for _, edge := range w.edges {
		if edge.Source != nodeID && edge.Target != nodeID {
			kept = append(kept, edge)
		}
	}
	w.edges = kept

	return nil
}

// MoveNode updates a node's canvas position.
func (w *Workflow) MoveNode(nodeID string, position Position) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	node, exists := w.nodes[nodeID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	node.Position = position
	return nil
}

// Connect creates a directed edge from source to target. Self-loops and
// duplicate (source, target) pairs are rejected.
func (w *Workflow) Connect(sourceID, targetID string) (Edge, error) {
	if sourceID == targetID {
		return Edge{}, fmt.Errorf("%w: %s", ErrSelfLoop, sourceID)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.nodes[sourceID]; !exists {
		return Edge{}, fmt.Errorf("%w: source %s", ErrNodeNotFound, sourceID)
	}
	if _, exists := w.nodes[targetID]; !exists {
		return Edge{}, fmt.Errorf("%w: target %s", ErrNodeNotFound, targetID)
	}
	for _, edge := range w.edges {
		if edge.Source == sourceID && edge.Target == targetID {
			return Edge{}, fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, sourceID, targetID)
		}
	}

	edge := &Edge{
		ID:     uuid.NewString(),
		Source: sourceID,
		Target: targetID,
	}
	w.edges = append(w.edges, edge)
	return *edge, nil
}

// Disconnect removes an edge by ID.
func (w *Workflow) Disconnect(edgeID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for index, edge := range w.edges {
		if edge.ID == edgeID {
			w.edges = append(w.edges[:index], w.edges[index+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEdgeNotFound, edgeID)
}

// UpdateConfig applies mutate to a node's configuration under the workflow
// lock. This is the single write path for both user edits and the execution
// controller's persistence of resolved upstream values.
func (w *Workflow) UpdateConfig(nodeID string, mutate func(*Config)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	node, exists := w.nodes[nodeID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	mutate(&node.Config)
	return nil
}

// SetStatus updates a node's canvas status.
func (w *Workflow) SetStatus(nodeID string, status NodeStatus) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	node, exists := w.nodes[nodeID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	node.Status = status
	return nil
}

// UpdateState applies mutate to a node's execution state under the workflow
// lock. Updates replace fields of the keyed state wholesale, so a single
// node's run never observes torn writes.
func (w *Workflow) UpdateState(nodeID string, mutate func(*ExecutionState)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, exists := w.states[nodeID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	mutate(state)
	return nil
}

// Node returns a deep copy of the node with the given ID.
func (w *Workflow) Node(nodeID string) (Node, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	node, exists := w.nodes[nodeID]
	if !exists {
		return Node{}, false
	}
	return node.copy(), true
}

// Nodes returns deep copies of all nodes in insertion order.
func (w *Workflow) Nodes() []Node {
	w.mu.RLock()
	defer w.mu.RUnlock()

	nodes := make([]Node, 0, len(w.nodeOrder))
	for _, nodeID := range w.nodeOrder {
		if node, exists := w.nodes[nodeID]; exists {
			nodes = append(nodes, node.copy())
		}
	}
	return nodes
}

// Edges returns a copy of all edges.
func (w *Workflow) Edges() []Edge {
	w.mu.RLock()
	defer w.mu.RUnlock()

	edges := make([]Edge, 0, len(w.edges))
	for _, edge := range w.edges {
		edges = append(edges, *edge)
	}
	return edges
}

// IncomingEdges returns copies of all edges whose target is the given node.
func (w *Workflow) IncomingEdges(targetID string) []Edge {
	w.mu.RLock()
	defer w.mu.RUnlock()

	incoming := make([]Edge, 0)
	for _, edge := range w.edges {
		if edge.Target == targetID {
			incoming = append(incoming, *edge)
		}
	}
	return incoming
}

// State returns a deep copy of a node's execution state.
func (w *Workflow) State(nodeID string) (*ExecutionState, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	state, exists := w.states[nodeID]
	if !exists {
		return nil, false
	}
	return state.clone(), true
}

// Snapshot is the serialized form of a whole workflow: topology, per-node
// configuration, and execution states.
type Snapshot struct {
	Nodes           []Node                     `json:"nodes"`
	Edges           []Edge                     `json:"edges"`
	ExecutionStates map[string]*ExecutionState `json:"execution_states"`
}

// Snapshot returns a deep copy of the entire workflow suitable for
// serialization.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snapshot := Snapshot{
		Nodes:           make([]Node, 0, len(w.nodeOrder)),
		Edges:           make([]Edge, 0, len(w.edges)),
		ExecutionStates: make(map[string]*ExecutionState, len(w.states)),
	}
	for _, nodeID := range w.nodeOrder {
		if node, exists := w.nodes[nodeID]; exists {
			snapshot.Nodes = append(snapshot.Nodes, node.copy())
		}
	}
	for _, edge := range w.edges {
		snapshot.Edges = append(snapshot.Edges, *edge)
	}
	for nodeID, state := range w.states {
		snapshot.ExecutionStates[nodeID] = state.clone()
	}
	return snapshot
}

// FromSnapshot rebuilds a workflow from a snapshot. Nodes missing an
// execution state (a degraded save) start with a fresh empty state; edges
// whose endpoints are gone are dropped.
func FromSnapshot(snapshot Snapshot) *Workflow {
	w := New()

	for index := range snapshot.Nodes {
		node := snapshot.Nodes[index].copy()
		w.nodes[node.ID] = &node
		w.nodeOrder = append(w.nodeOrder, node.ID)

		if state, exists := snapshot.ExecutionStates[node.ID]; exists && state != nil {
			w.states[node.ID] = state.clone()
		} else {
			w.states[node.ID] = NewExecutionState()
		}
	}

	for _, edge := range snapshot.Edges {
		if _, sourceExists := w.nodes[edge.Source]; !sourceExists {
			continue
		}
		if _, targetExists := w.nodes[edge.Target]; !targetExists {
			continue
		}
		edgeCopy := edge
		w.edges = append(w.edges, &edgeCopy)
	}

	return w
}

func (node *Node) copy() Node {
	nodeCopy := *node
	nodeCopy.Config = node.Config.Clone()
	return nodeCopy
}

func (state *ExecutionState) clone() *ExecutionState {
	stateCopy := &ExecutionState{
		Messages: make([]Message, len(state.Messages)),
		State:    state.State,
		Sections: make([]VersionedSection, len(state.Sections)),
		Elapsed:  state.Elapsed,
		Logs:     make([]LogEntry, len(state.Logs)),
		Usage:    state.Usage,
	}
	copy(stateCopy.Messages, state.Messages)
	copy(stateCopy.Logs, state.Logs)
	for index, section := range state.Sections {
		sectionCopy := section
		sectionCopy.Versions = make([]SectionVersion, len(section.Versions))
		copy(sectionCopy.Versions, section.Versions)
		stateCopy.Sections[index] = sectionCopy
	}
	return stateCopy
}
