package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/eli0s78/Universal-Academic-Workflow/core/workflow"
	"github.com/eli0s78/Universal-Academic-Workflow/providers/protocol"
	"github.com/eli0s78/Universal-Academic-Workflow/providers/storage"
)

// echoGenerator returns a deterministic response derived from the protocol.
type echoGenerator struct{}

func (echoGenerator) Run(_ context.Context, request protocol.RunRequest) (*protocol.RunResult, error) {
	return &protocol.RunResult{
		Handle:       request.Protocol,
		ResponseText: "# Output for " + request.Protocol + "\n\nGenerated text.",
		Usage:        protocol.Usage{TotalTokens: 10},
	}, nil
}

func (echoGenerator) Continue(_ context.Context, handle protocol.Handle, _ string) (*protocol.RunResult, error) {
	return &protocol.RunResult{
		Handle:       handle,
		ResponseText: "Continued.",
	}, nil
}

func TestEngine_GraphMutations(testCase *testing.T) {
	wf := New(echoGenerator{})

	outline, err := wf.AddNode(workflow.TypeOutline, workflow.Position{X: 1, Y: 2})
	if err != nil {
		testCase.Fatalf("AddNode failed: %v", err)
	}
	chapter, err := wf.AddNode(workflow.TypeChapter, workflow.Position{})
	if err != nil {
		testCase.Fatalf("AddNode failed: %v", err)
	}

	edge, err := wf.Connect(outline.ID, chapter.ID)
	if err != nil {
		testCase.Fatalf("Connect failed: %v", err)
	}
	if err := wf.Disconnect(edge.ID); err != nil {
		testCase.Fatalf("Disconnect failed: %v", err)
	}
	if err := wf.MoveNode(outline.ID, workflow.Position{X: 50, Y: 60}); err != nil {
		testCase.Fatalf("MoveNode failed: %v", err)
	}
	if err := wf.DeleteNode(chapter.ID); err != nil {
		testCase.Fatalf("DeleteNode failed: %v", err)
	}

	if nodes := wf.Workflow().Nodes(); len(nodes) != 1 {
		testCase.Errorf("expected 1 node remaining, got %d", len(nodes))
	}
}

func TestEngine_RunAndDocumentFlow(testCase *testing.T) {
	wf := New(echoGenerator{})
	ctx := context.Background()

	chapter, err := wf.AddNode(workflow.TypeChapter, workflow.Position{})
	if err != nil {
		testCase.Fatalf("AddNode failed: %v", err)
	}
	if err := wf.Run(ctx, chapter.ID); err != nil {
		testCase.Fatalf("Run failed: %v", err)
	}

	state, _ := wf.Workflow().State(chapter.ID)
	text := state.VisibleAssistantText()
	if !strings.Contains(text, "Output for chapter") {
		testCase.Fatalf("unexpected run output: %q", text)
	}

	section, err := wf.AddSection(chapter.ID, text, workflow.SourceAIGenerated, "")
	if err != nil {
		testCase.Fatalf("AddSection failed: %v", err)
	}
	if err := wf.UpdateSection(chapter.ID, section.ID, "Edited body."); err != nil {
		testCase.Fatalf("UpdateSection failed: %v", err)
	}
	if err := wf.RevertSection(chapter.ID, section.ID, section.Versions[0].ID); err != nil {
		testCase.Fatalf("RevertSection failed: %v", err)
	}

	sections, err := wf.Sections(chapter.ID)
	if err != nil {
		testCase.Fatalf("Sections failed: %v", err)
	}
	if len(sections) != 1 {
		testCase.Fatalf("expected 1 section, got %d", len(sections))
	}
	active := sections[0].ActiveVersion()
	if active == nil || active.Content != text {
		testCase.Error("revert did not restore the original content")
	}
}

func TestEngine_ResolveEffectiveConfig(testCase *testing.T) {
	wf := New(echoGenerator{})

	project, err := wf.AddNode(workflow.TypeProjectDefinition, workflow.Position{}, workflow.WithLabel("Proj"))
	if err != nil {
		testCase.Fatalf("AddNode failed: %v", err)
	}
	chapter, err := wf.AddNode(workflow.TypeChapter, workflow.Position{})
	if err != nil {
		testCase.Fatalf("AddNode failed: %v", err)
	}
	if _, err := wf.Connect(project.ID, chapter.ID); err != nil {
		testCase.Fatalf("Connect failed: %v", err)
	}
	if err := wf.UpdateConfig(project.ID, func(config *workflow.Config) {
		config.Title = "Shared Title"
	}); err != nil {
		testCase.Fatalf("UpdateConfig failed: %v", err)
	}

	resolution, err := wf.ResolveEffectiveConfig(chapter.ID)
	if err != nil {
		testCase.Fatalf("ResolveEffectiveConfig failed: %v", err)
	}
	if resolution.Config.Title != "Shared Title" {
		testCase.Errorf("title not inherited: %q", resolution.Config.Title)
	}
	if resolution.Provenance["title"] != "Proj" {
		testCase.Errorf("unexpected provenance: %v", resolution.Provenance)
	}
}

func TestEngine_PersistAndReopen(testCase *testing.T) {
	store := storage.NewMemoryStore(0)
	saver := storage.NewSaver(store)
	ctx := context.Background()

	wf := New(echoGenerator{}, WithSaver(saver, storage.WithQuietPeriod(time.Hour)))
	outline, err := wf.AddNode(workflow.TypeOutline, workflow.Position{}, workflow.WithLabel("Plan"))
	if err != nil {
		testCase.Fatalf("AddNode failed: %v", err)
	}
	if err := wf.Run(ctx, outline.ID); err != nil {
		testCase.Fatalf("Run failed: %v", err)
	}
	if err := wf.Close(ctx); err != nil {
		testCase.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(ctx, saver, echoGenerator{})
	if err != nil {
		testCase.Fatalf("Open failed: %v", err)
	}
	node, exists := reopened.Workflow().Node(outline.ID)
	if !exists {
		testCase.Fatal("node lost across restart")
	}
	if node.Label != "Plan" {
		testCase.Errorf("label lost across restart: %q", node.Label)
	}
	state, _ := reopened.Workflow().State(outline.ID)
	if state.State != workflow.StateCompleted {
		testCase.Errorf("execution state lost across restart: %q", state.State)
	}
}

func TestEngine_OpenEmptyStore(testCase *testing.T) {
	saver := storage.NewSaver(storage.NewMemoryStore(0))
	wf, err := Open(context.Background(), saver, echoGenerator{})
	if err != nil {
		testCase.Fatalf("Open on an empty store failed: %v", err)
	}
	if nodes := wf.Workflow().Nodes(); len(nodes) != 0 {
		testCase.Errorf("expected an empty workflow, got %d nodes", len(nodes))
	}
}

func TestEngine_FlushWithoutPersistence(testCase *testing.T) {
	wf := New(echoGenerator{})
	_, err := wf.Flush(context.Background())
	if !errors.Is(err, ErrNoPersistence) {
		testCase.Fatalf("expected ErrNoPersistence, got: %v", err)
	}
	if err := wf.Close(context.Background()); err != nil {
		testCase.Errorf("Close without persistence must be a no-op, got: %v", err)
	}
}
