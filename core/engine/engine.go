// Package engine ties the workflow graph, context resolution, execution and
// persistence together behind one editor-facing surface. A frontend (or a
// test) talks to an Engine; every mutation schedules a debounced snapshot
// save when persistence is configured.
package engine

import (
	"context"
	"errors"

	"github.com/eli0s78/Universal-Academic-Workflow/core/document"
	"github.com/eli0s78/Universal-Academic-Workflow/core/resolve"
	"github.com/eli0s78/Universal-Academic-Workflow/core/runner"
	"github.com/eli0s78/Universal-Academic-Workflow/core/workflow"
	"github.com/eli0s78/Universal-Academic-Workflow/providers/protocol"
	"github.com/eli0s78/Universal-Academic-Workflow/providers/storage"
)

// ErrNoPersistence is returned by Flush when the engine was created without
// a snapshot saver.
var ErrNoPersistence = errors.New("engine: no persistence configured")

// Engine is the top-level editor surface. It owns the workflow graph and
// composes the resolver, the execution controller, the document store and the
// optional autosaver.
type Engine struct {
	workflow   *workflow.Workflow
	resolver   *resolve.Resolver
	controller *runner.Controller
	documents  *document.Store
	autosaver  *storage.Autosaver

	runnerOptions []runner.Option
	saver         *storage.Saver
	autosaverOpts []storage.AutosaverOption
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithRunnerOptions forwards options to the execution controller.
func WithRunnerOptions(opts ...runner.Option) EngineOption {
	return func(engine *Engine) {
		engine.runnerOptions = append(engine.runnerOptions, opts...)
	}
}

// WithSaver enables autosaving through the given snapshot saver.
func WithSaver(saver *storage.Saver, opts ...storage.AutosaverOption) EngineOption {
	return func(engine *Engine) {
		engine.saver = saver
		engine.autosaverOpts = opts
	}
}

// New creates an Engine over a fresh, empty workflow.
func New(generator protocol.Generator, opts ...EngineOption) *Engine {
	return newEngine(workflow.New(), generator, opts...)
}

// Open creates an Engine over the last saved snapshot in the saver's store.
// If no snapshot exists yet, it starts from an empty workflow. The returned
// Engine autosaves through the same saver.
func Open(ctx context.Context, saver *storage.Saver, generator protocol.Generator, opts ...EngineOption) (*Engine, error) {
	w := workflow.New()

	snapshot, err := saver.Load(ctx)
	switch {
	case err == nil:
		w = workflow.FromSnapshot(snapshot)
	case errors.Is(err, storage.ErrNotFound):
		// First session for this store.
	default:
		return nil, err
	}

	opts = append(opts, WithSaver(saver))
	return newEngine(w, generator, opts...), nil
}

func newEngine(w *workflow.Workflow, generator protocol.Generator, opts ...EngineOption) *Engine {
	engine := &Engine{workflow: w}
	for _, opt := range opts {
		opt(engine)
	}

	engine.resolver = resolve.New(w)
	engine.documents = document.NewStore(w)
	engine.controller = runner.NewController(w, generator, engine.runnerOptions...)

	if engine.saver != nil {
		engine.autosaver = storage.NewAutosaver(engine.saver, w.Snapshot, engine.autosaverOpts...)
	}
	return engine
}

// Workflow exposes the underlying graph for read access.
func (engine *Engine) Workflow() *workflow.Workflow {
	return engine.workflow
}

// AddNode creates a node of the given protocol type on the canvas.
func (engine *Engine) AddNode(nodeType workflow.NodeType, position workflow.Position, opts ...workflow.NodeOption) (workflow.Node, error) {
	node, err := engine.workflow.AddNode(nodeType, position, opts...)
	if err != nil {
		return workflow.Node{}, err
	}
	engine.changed()
	return node, nil
}

// DeleteNode removes a node along with its edges and execution state.
func (engine *Engine) DeleteNode(nodeID string) error {
	if err := engine.workflow.DeleteNode(nodeID); err != nil {
		return err
	}
	engine.changed()
	return nil
}

// MoveNode repositions a node on the canvas.
func (engine *Engine) MoveNode(nodeID string, position workflow.Position) error {
	if err := engine.workflow.MoveNode(nodeID, position); err != nil {
		return err
	}
	engine.changed()
	return nil
}

// Connect creates a directed edge between two existing nodes.
func (engine *Engine) Connect(sourceID, targetID string) (workflow.Edge, error) {
	edge, err := engine.workflow.Connect(sourceID, targetID)
	if err != nil {
		return workflow.Edge{}, err
	}
	engine.changed()
	return edge, nil
}

// Disconnect removes an edge.
func (engine *Engine) Disconnect(edgeID string) error {
	if err := engine.workflow.Disconnect(edgeID); err != nil {
		return err
	}
	engine.changed()
	return nil
}

// UpdateConfig applies a mutation to a node's own configuration.
func (engine *Engine) UpdateConfig(nodeID string, mutate func(*workflow.Config)) error {
	if err := engine.workflow.UpdateConfig(nodeID, mutate); err != nil {
		return err
	}
	engine.changed()
	return nil
}

// ResolveEffectiveConfig computes the node's effective configuration and its
// per-field provenance without side effects.
func (engine *Engine) ResolveEffectiveConfig(nodeID string) (*resolve.Resolution, error) {
	return engine.resolver.Resolve(nodeID)
}

// Run starts a node's protocol conversation from its effective configuration.
func (engine *Engine) Run(ctx context.Context, nodeID string) error {
	err := engine.controller.Run(ctx, nodeID)
	engine.changed()
	return err
}

// Continue sends a user message into a node's in-flight conversation.
func (engine *Engine) Continue(ctx context.Context, nodeID, userMessage string) error {
	err := engine.controller.Continue(ctx, nodeID, userMessage)
	engine.changed()
	return err
}

// AddSection appends a new document section to a node.
func (engine *Engine) AddSection(nodeID, content string, source workflow.VersionSource, sourceMessageID string) (workflow.VersionedSection, error) {
	section, err := engine.documents.AddSection(nodeID, content, source, sourceMessageID)
	if err != nil {
		return workflow.VersionedSection{}, err
	}
	engine.changed()
	return section, nil
}

// UpdateSection records a user edit as a new active version of a section.
func (engine *Engine) UpdateSection(nodeID, sectionID, content string) error {
	if err := engine.documents.UpdateSection(nodeID, sectionID, content); err != nil {
		return err
	}
	engine.changed()
	return nil
}

// DeleteSection removes a section and its version history.
func (engine *Engine) DeleteSection(nodeID, sectionID string) error {
	if err := engine.documents.DeleteSection(nodeID, sectionID); err != nil {
		return err
	}
	engine.changed()
	return nil
}

// RevertSection makes an earlier version of a section active again.
func (engine *Engine) RevertSection(nodeID, sectionID, versionID string) error {
	if err := engine.documents.RevertSection(nodeID, sectionID, versionID); err != nil {
		return err
	}
	engine.changed()
	return nil
}

// Sections returns a node's document sections in display order.
func (engine *Engine) Sections(nodeID string) ([]workflow.VersionedSection, error) {
	return engine.documents.Sections(nodeID)
}

// Flush forces an immediate snapshot save, bypassing the debounce window.
func (engine *Engine) Flush(ctx context.Context) (storage.Tier, error) {
	if engine.autosaver == nil {
		return 0, ErrNoPersistence
	}
	return engine.autosaver.Flush(ctx)
}

// Close flushes pending state and stops the autosaver. Safe without
// persistence configured.
func (engine *Engine) Close(ctx context.Context) error {
	if engine.autosaver == nil {
		return nil
	}
	return engine.autosaver.Close(ctx)
}

func (engine *Engine) changed() {
	if engine.autosaver != nil {
		engine.autosaver.Notify()
	}
}
