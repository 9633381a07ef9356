// Package runner drives single-node runs: it snapshots the node's effective
// configuration, performs digestion pre-processing, invokes the external
// generation capability, interprets the response, and commits results to the
// node's execution state.
//
// Each run is an independent asynchronous task keyed by node ID; the
// controller owns the registry of in-flight conversation handles and the
// per-node timers, so separate controller instances never share state.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eli0s78/Universal-Academic-Workflow/core/document"
	"github.com/eli0s78/Universal-Academic-Workflow/core/resolve"
	"github.com/eli0s78/Universal-Academic-Workflow/core/workflow"
	"github.com/eli0s78/Universal-Academic-Workflow/internal/utils"
	"github.com/eli0s78/Universal-Academic-Workflow/providers/observability"
	"github.com/eli0s78/Universal-Academic-Workflow/providers/protocol"
)

var (
	// ErrNoConversation is returned by Continue when the node has no
	// in-flight conversation to continue.
	ErrNoConversation = errors.New("runner: no conversation to continue")

	// ErrNoExtractor is returned when a node needs digestion pre-processing
	// but no extraction capability was configured.
	ErrNoExtractor = errors.New("runner: no extractor configured")
)

// Controller executes node runs against a workflow.
type Controller struct {
	workflow  *workflow.Workflow
	resolver  *resolve.Resolver
	documents *document.Store
	generator protocol.Generator
	extractor protocol.Extractor
	observer  observability.Provider
	retry     RetryConfig
	depth     protocol.Depth

	mu      sync.Mutex
	handles map[string]protocol.Handle
	timers  map[string]*utils.Timer
}

// Option customizes a Controller.
type Option func(*Controller)

// WithExtractor sets the extraction capability used for digestion
// pre-processing of raw source documents.
func WithExtractor(extractor protocol.Extractor) Option {
	return func(controller *Controller) {
		controller.extractor = extractor
	}
}

// WithObserver attaches an observability provider. A nil provider disables
// observability.
func WithObserver(observer observability.Provider) Option {
	return func(controller *Controller) {
		controller.observer = observer
	}
}

// WithRetryConfig overrides the transient-error retry tuning.
func WithRetryConfig(config RetryConfig) Option {
	return func(controller *Controller) {
		controller.retry = config
	}
}

// WithAnalysisDepth sets the extraction analysis depth. Default:
// protocol.DepthBalanced.
func WithAnalysisDepth(depth protocol.Depth) Option {
	return func(controller *Controller) {
		controller.depth = depth
	}
}

// NewController creates a Controller for the given workflow and generation
// capability.
func NewController(w *workflow.Workflow, generator protocol.Generator, opts ...Option) *Controller {
	controller := &Controller{
		workflow:  w,
		resolver:  resolve.New(w),
		documents: document.NewStore(w),
		generator: generator,
		depth:     protocol.DepthBalanced,
		handles:   make(map[string]protocol.Handle),
		timers:    make(map[string]*utils.Timer),
	}
	for _, opt := range opts {
		opt(controller)
	}
	return controller
}

// Run performs one run of the node: resolve the effective configuration,
// digest raw source files if needed, invoke the generation capability, and
// commit the interpreted result to execution state.
//
// Every run appends one hidden user message carrying the constructed payload
// and, on success, one visible assistant message carrying the cleaned
// response with its duration and grounding metadata.
func (controller *Controller) Run(ctx context.Context, nodeID string) error {
	node, exists := controller.workflow.Node(nodeID)
	if !exists {
		return fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, nodeID)
	}

	resolution, err := controller.resolver.Resolve(nodeID)
	if err != nil {
		return err
	}

	timer := controller.startRun(nodeID)
	controller.logf(nodeID, "run started (protocol=%s)", node.Type)

	// Digestion pre-processing: only when raw files are present and no
	// already-resolved digested text covers them.
	digested, err := controller.digestIfNeeded(ctx, nodeID, node, resolution)
	if err != nil {
		controller.failRun(nodeID, timer, err)
		return err
	}

	payload := utils.JSONToString(resolution.Config)
	controller.appendMessage(nodeID, workflow.Message{
		ID:        uuid.NewString(),
		Role:      workflow.RoleUser,
		Content:   payload,
		Hidden:    true,
		CreatedAt: time.Now(),
	})

	result, err := withRetry(ctx, controller.retry, func(ctx context.Context) (*protocol.RunResult, error) {
		return controller.generator.Run(ctx, protocol.RunRequest{
			Protocol: string(node.Type),
			Payload:  payload,
		})
	})
	if err != nil {
		controller.failRun(nodeID, timer, err)
		return fmt.Errorf("running node %s: %w", nodeID, err)
	}

	controller.commitResult(nodeID, node, timer, result)

	// Persist the resolved bibliography back onto the node so re-runs skip
	// the expensive digestion. This is an explicit post-run write, never a
	// resolver side effect.
	if digested && node.Config.Bibliography == "" {
		resolvedBibliography := resolution.Config.Bibliography
		_ = controller.workflow.UpdateConfig(nodeID, func(config *workflow.Config) { //nolint:errcheck
			config.Bibliography = resolvedBibliography
		})
	}

	return nil
}

// Continue feeds a user message into the node's in-flight conversation,
// re-entering processing from AWAITING_USER_ACTION (or retrying after an
// error on the same conversation).
func (controller *Controller) Continue(ctx context.Context, nodeID, userMessage string) error {
	node, exists := controller.workflow.Node(nodeID)
	if !exists {
		return fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, nodeID)
	}

	controller.mu.Lock()
	handle, handleExists := controller.handles[nodeID]
	controller.mu.Unlock()
	if !handleExists {
		return fmt.Errorf("%w: %s", ErrNoConversation, nodeID)
	}

	timer := controller.startRun(nodeID)
	controller.logf(nodeID, "continuation started (protocol=%s)", node.Type)

	controller.appendMessage(nodeID, workflow.Message{
		ID:        uuid.NewString(),
		Role:      workflow.RoleUser,
		Content:   userMessage,
		CreatedAt: time.Now(),
	})

	result, err := withRetry(ctx, controller.retry, func(ctx context.Context) (*protocol.RunResult, error) {
		return controller.generator.Continue(ctx, handle, userMessage)
	})
	if err != nil {
		controller.failRun(nodeID, timer, err)
		return fmt.Errorf("continuing node %s: %w", nodeID, err)
	}

	controller.commitResult(nodeID, node, timer, result)
	return nil
}

// digestIfNeeded converts the node's raw source files into digested
// bibliography text when no digested text is available yet. The scope
// descriptor derives from the node's title, subtitle and outline, used as an
// interpretive lens by the extraction capability.
func (controller *Controller) digestIfNeeded(ctx context.Context, nodeID string, node workflow.Node, resolution *resolve.Resolution) (bool, error) {
	if len(resolution.Config.BibliographyFiles) == 0 || resolution.Config.Bibliography != "" {
		return false, nil
	}
	if controller.extractor == nil {
		return false, ErrNoExtractor
	}

	scope := protocol.Scope{
		ContextText:  scopeDescriptor(resolution.Config),
		Instructions: resolution.Config.Instructions,
	}

	controller.logf(nodeID, "digesting %d source file(s) at depth %s", len(resolution.Config.BibliographyFiles), controller.depth)

	text, usage, err := digestFiles(ctx, controller.extractor, resolution.Config.BibliographyFiles, scope, controller.depth)

	// Sub-call usage counts even when digestion ultimately fails.
	_ = controller.workflow.UpdateState(nodeID, func(state *workflow.ExecutionState) { //nolint:errcheck
		state.Usage.Add(usage)
	})
	if err != nil {
		return false, fmt.Errorf("digesting sources for node %s: %w", nodeID, err)
	}

	resolution.Config.Bibliography = text
	return true, nil
}

// commitResult interprets the response text and commits the terminal state,
// the visible assistant message, usage and the conversation handle.
func (controller *Controller) commitResult(nodeID string, node workflow.Node, timer *utils.Timer, result *protocol.RunResult) {
	classification := ClassifyResponse(result.ResponseText)

	timer.Stop()
	controller.clearTimer(nodeID)

	assistantMessage := workflow.Message{
		ID:            uuid.NewString(),
		Role:          workflow.RoleAssistant,
		Content:       classification.CleanText,
		Duration:      timer.Elapsed(),
		Citations:     result.Citations,
		SearchQueries: result.SearchQueries,
		CreatedAt:     time.Now(),
	}

	nextState := workflow.StateCompleted
	if classification.AwaitingUser {
		nextState = workflow.StateAwaitingUserAction
	}

	_ = controller.workflow.UpdateState(nodeID, func(state *workflow.ExecutionState) { //nolint:errcheck
		state.Messages = append(state.Messages, assistantMessage)
		state.State = nextState
		state.Usage.Add(result.Usage)
		state.Elapsed += timer.Elapsed()
		state.Log(fmt.Sprintf("run finished in %s (state=%s)", timer.Elapsed().Round(time.Millisecond), nextState))
	})
	_ = controller.workflow.SetStatus(nodeID, workflow.StatusCompleted) //nolint:errcheck

	controller.mu.Lock()
	controller.handles[nodeID] = result.Handle
	controller.mu.Unlock()

	// Citation verification results appear in the artifact view without a
	// manual add: seed one section with the verified draft.
	if node.Type == workflow.TypeCitationCheck && classification.CleanText != "" {
		if sections, err := controller.documents.Sections(nodeID); err == nil && len(sections) == 0 {
			_, _ = controller.documents.AddSection(nodeID, classification.CleanText, workflow.SourceAIGenerated, assistantMessage.ID) //nolint:errcheck
		}
	}

	controller.observe(nodeID, node, timer.Elapsed(), result.Usage)
}

// startRun transitions the node into processing, starts its timer and records
// the timer so every terminal path can stop it.
func (controller *Controller) startRun(nodeID string) *utils.Timer {
	timer := utils.NewTimer()

	controller.mu.Lock()
	controller.timers[nodeID] = timer
	controller.mu.Unlock()

	_ = controller.workflow.SetStatus(nodeID, workflow.StatusRunning)                  //nolint:errcheck
	_ = controller.workflow.UpdateState(nodeID, func(state *workflow.ExecutionState) { //nolint:errcheck
		state.State = workflow.StateProcessing
	})
	return timer
}

// failRun commits an error outcome: the node becomes inspectable and
// re-runnable, with the failure appended to its log.
func (controller *Controller) failRun(nodeID string, timer *utils.Timer, runErr error) {
	timer.Stop()
	controller.clearTimer(nodeID)

	_ = controller.workflow.UpdateState(nodeID, func(state *workflow.ExecutionState) { //nolint:errcheck
		state.State = workflow.StateError
		state.Elapsed += timer.Elapsed()
		state.Log(fmt.Sprintf("run failed: %v", runErr))
	})
	_ = controller.workflow.SetStatus(nodeID, workflow.StatusError) //nolint:errcheck

	if controller.observer != nil {
		controller.observer.Error("node run failed",
			observability.String("node_id", nodeID),
			observability.Error(runErr),
		)
	}
}

func (controller *Controller) clearTimer(nodeID string) {
	controller.mu.Lock()
	delete(controller.timers, nodeID)
	controller.mu.Unlock()
}

func (controller *Controller) appendMessage(nodeID string, message workflow.Message) {
	_ = controller.workflow.UpdateState(nodeID, func(state *workflow.ExecutionState) { //nolint:errcheck
		state.Messages = append(state.Messages, message)
	})
}

func (controller *Controller) logf(nodeID, format string, args ...any) {
	_ = controller.workflow.UpdateState(nodeID, func(state *workflow.ExecutionState) { //nolint:errcheck
		state.Log(fmt.Sprintf(format, args...))
	})
}

func (controller *Controller) observe(nodeID string, node workflow.Node, duration time.Duration, usage protocol.Usage) {
	if controller.observer == nil {
		return
	}
	controller.observer.Info("node run completed",
		observability.String("node_id", nodeID),
		observability.String("protocol", string(node.Type)),
		observability.Duration("duration", duration),
		observability.Int("total_tokens", usage.TotalTokens),
	)
	controller.observer.Counter("workflow.node.runs").Add(1,
		observability.String("protocol", string(node.Type)),
	)
}
