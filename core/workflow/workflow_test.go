package workflow

import (
	"errors"
	"strings"
	"testing"
)

func addTestNode(testCase *testing.T, w *Workflow, nodeType NodeType, opts ...NodeOption) Node {
	testCase.Helper()
	node, err := w.AddNode(nodeType, Position{}, opts...)
	if err != nil {
		testCase.Fatalf("AddNode(%s) failed: %v", nodeType, err)
	}
	return node
}

func TestAddNode_AssignsIDAndState(testCase *testing.T) {
	w := New()
	node := addTestNode(testCase, w, TypeChapter)

	if node.ID == "" {
		testCase.Error("expected a non-empty node ID")
	}
	if node.Status != StatusIdle {
		testCase.Errorf("expected status %q, got %q", StatusIdle, node.Status)
	}

	state, exists := w.State(node.ID)
	if !exists {
		testCase.Fatal("expected execution state to be created with the node")
	}
	if state.State != StateConfiguring {
		testCase.Errorf("expected state %q, got %q", StateConfiguring, state.State)
	}
}

func TestAddNode_InvalidType(testCase *testing.T) {
	w := New()
	_, err := w.AddNode("interpretive_dance", Position{})

	if !errors.Is(err, ErrInvalidNodeType) {
		testCase.Fatalf("expected ErrInvalidNodeType, got: %v", err)
	}
}

func TestConnect_RejectsSelfLoop(testCase *testing.T) {
	w := New()
	node := addTestNode(testCase, w, TypeOutline)

	_, err := w.Connect(node.ID, node.ID)
	if !errors.Is(err, ErrSelfLoop) {
		testCase.Fatalf("expected ErrSelfLoop, got: %v", err)
	}
}

func TestConnect_RejectsDuplicateEdge(testCase *testing.T) {
	w := New()
	outline := addTestNode(testCase, w, TypeOutline)
	chapter := addTestNode(testCase, w, TypeChapter)

	if _, err := w.Connect(outline.ID, chapter.ID); err != nil {
		testCase.Fatalf("first Connect failed: %v", err)
	}
	_, err := w.Connect(outline.ID, chapter.ID)
	if !errors.Is(err, ErrDuplicateEdge) {
		testCase.Fatalf("expected ErrDuplicateEdge, got: %v", err)
	}
}

func TestConnect_MissingEndpoint(testCase *testing.T) {
	w := New()
	outline := addTestNode(testCase, w, TypeOutline)

	_, err := w.Connect(outline.ID, "nope")
	if !errors.Is(err, ErrNodeNotFound) {
		testCase.Fatalf("expected ErrNodeNotFound, got: %v", err)
	}
}

func TestDeleteNode_CascadesEdgesAndState(testCase *testing.T) {
	w := New()
	outline := addTestNode(testCase, w, TypeOutline)
	chapter := addTestNode(testCase, w, TypeChapter)
	critique := addTestNode(testCase, w, TypeCritique)

	if _, err := w.Connect(outline.ID, chapter.ID); err != nil {
		testCase.Fatalf("Connect failed: %v", err)
	}
	if _, err := w.Connect(chapter.ID, critique.ID); err != nil {
		testCase.Fatalf("Connect failed: %v", err)
	}

	if err := w.DeleteNode(chapter.ID); err != nil {
		testCase.Fatalf("DeleteNode failed: %v", err)
	}

	if _, exists := w.Node(chapter.ID); exists {
		testCase.Error("deleted node still present")
	}
	if _, exists := w.State(chapter.ID); exists {
		testCase.Error("deleted node's execution state still present")
	}
	if edges := w.Edges(); len(edges) != 0 {
		testCase.Errorf("expected all edges touching the node removed, got %d", len(edges))
	}
}

func TestDisconnect_UnknownEdge(testCase *testing.T) {
	w := New()
	if err := w.Disconnect("missing"); !errors.Is(err, ErrEdgeNotFound) {
		testCase.Fatalf("expected ErrEdgeNotFound, got: %v", err)
	}
}

func TestMoveNode(testCase *testing.T) {
	w := New()
	node := addTestNode(testCase, w, TypeNotes)

	if err := w.MoveNode(node.ID, Position{X: 12.5, Y: -3}); err != nil {
		testCase.Fatalf("MoveNode failed: %v", err)
	}
	moved, _ := w.Node(node.ID)
	if moved.Position.X != 12.5 || moved.Position.Y != -3 {
		testCase.Errorf("unexpected position: %+v", moved.Position)
	}
}

func TestUpdateConfig_DoesNotLeakInternalState(testCase *testing.T) {
	w := New()
	node := addTestNode(testCase, w, TypeChapter)

	if err := w.UpdateConfig(node.ID, func(config *Config) {
		config.Title = "Original"
	}); err != nil {
		testCase.Fatalf("UpdateConfig failed: %v", err)
	}

	// Mutating the returned copy must not affect the stored node.
	read, _ := w.Node(node.ID)
	read.Config.Title = "Tampered"

	reread, _ := w.Node(node.ID)
	if reread.Config.Title != "Original" {
		testCase.Errorf("stored config mutated through a read copy: %q", reread.Config.Title)
	}
}

func TestNodes_PreservesInsertionOrder(testCase *testing.T) {
	w := New()
	first := addTestNode(testCase, w, TypeProjectDefinition)
	second := addTestNode(testCase, w, TypeOutline)
	third := addTestNode(testCase, w, TypeChapter)

	nodes := w.Nodes()
	if len(nodes) != 3 {
		testCase.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	if nodes[0].ID != first.ID || nodes[1].ID != second.ID || nodes[2].ID != third.ID {
		testCase.Error("nodes not returned in insertion order")
	}
}

func TestSnapshotRoundTrip(testCase *testing.T) {
	w := New()
	outline := addTestNode(testCase, w, TypeOutline, WithLabel("Plan"))
	chapter := addTestNode(testCase, w, TypeChapter)
	if _, err := w.Connect(outline.ID, chapter.ID); err != nil {
		testCase.Fatalf("Connect failed: %v", err)
	}
	if err := w.UpdateState(outline.ID, func(state *ExecutionState) {
		state.State = StateCompleted
		state.Messages = append(state.Messages, Message{Role: RoleAssistant, Content: "1. Intro"})
	}); err != nil {
		testCase.Fatalf("UpdateState failed: %v", err)
	}

	restored := FromSnapshot(w.Snapshot())

	node, exists := restored.Node(outline.ID)
	if !exists {
		testCase.Fatal("outline node missing after round trip")
	}
	if node.Label != "Plan" {
		testCase.Errorf("expected label %q, got %q", "Plan", node.Label)
	}
	if edges := restored.Edges(); len(edges) != 1 {
		testCase.Fatalf("expected 1 edge after round trip, got %d", len(edges))
	}
	state, _ := restored.State(outline.ID)
	if state.State != StateCompleted {
		testCase.Errorf("expected restored state %q, got %q", StateCompleted, state.State)
	}
	if !strings.Contains(state.VisibleAssistantText(), "1. Intro") {
		testCase.Error("assistant message lost in round trip")
	}
}

func TestFromSnapshot_DropsDanglingEdgesAndBackfillsState(testCase *testing.T) {
	w := New()
	outline := addTestNode(testCase, w, TypeOutline)
	chapter := addTestNode(testCase, w, TypeChapter)
	if _, err := w.Connect(outline.ID, chapter.ID); err != nil {
		testCase.Fatalf("Connect failed: %v", err)
	}

	snapshot := w.Snapshot()
	snapshot.Edges = append(snapshot.Edges, Edge{ID: "ghost", Source: "gone", Target: chapter.ID})
	delete(snapshot.ExecutionStates, chapter.ID)

	restored := FromSnapshot(snapshot)

	if edges := restored.Edges(); len(edges) != 1 {
		testCase.Errorf("expected dangling edge dropped, got %d edges", len(edges))
	}
	state, exists := restored.State(chapter.ID)
	if !exists {
		testCase.Fatal("expected fresh state for node missing from snapshot states")
	}
	if state.State != StateConfiguring {
		testCase.Errorf("expected fresh state %q, got %q", StateConfiguring, state.State)
	}
}
