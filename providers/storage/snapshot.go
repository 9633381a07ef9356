package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eli0s78/Universal-Academic-Workflow/core/workflow"
	"github.com/eli0s78/Universal-Academic-Workflow/providers/observability"
	"github.com/eli0s78/Universal-Academic-Workflow/providers/protocol"
)

// Tier identifies how much of the snapshot survived a save.
type Tier int

const (
	// TierFull is a complete save: topology, configs and execution states.
	TierFull Tier = iota + 1

	// TierNoExecutionState keeps topology and configs but resets every
	// execution state to empty.
	TierNoExecutionState

	// TierTruncatedConfig additionally replaces oversized config text fields
	// with a sentinel marker and clears file arrays.
	TierTruncatedConfig
)

func (tier Tier) String() string {
	switch tier {
	case TierFull:
		return "full"
	case TierNoExecutionState:
		return "no_execution_state"
	case TierTruncatedConfig:
		return "truncated_config"
	}
	return fmt.Sprintf("tier(%d)", int(tier))
}

const (
	// OversizeFieldThreshold is the size above which a config text field is
	// blanked at TierTruncatedConfig.
	OversizeFieldThreshold = 100000

	// OversizeSentinel replaces blanked config fields so a restored workflow
	// shows what was lost instead of silently losing it.
	OversizeSentinel = "[content removed to fit storage]"
)

// Saver serializes workflow snapshots into a BlobStore, degrading tier by
// tier when a write fails. A lower tier is attempted only after the previous
// tier's write returned an error; only a TierTruncatedConfig failure
// propagates as unrecoverable.
type Saver struct {
	store    BlobStore
	observer observability.Provider
}

// SaverOption customizes a Saver.
type SaverOption func(*Saver)

// WithObserver attaches an observability provider that records degraded and
// failed saves.
func WithObserver(observer observability.Provider) SaverOption {
	return func(saver *Saver) {
		saver.observer = observer
	}
}

// NewSaver creates a Saver on top of the given blob store.
func NewSaver(store BlobStore, opts ...SaverOption) *Saver {
	saver := &Saver{store: store}
	for _, opt := range opts {
		opt(saver)
	}
	return saver
}

// Save writes the snapshot, degrading through the tiers on write failure.
// It returns the tier that succeeded.
func (saver *Saver) Save(ctx context.Context, snapshot workflow.Snapshot) (Tier, error) {
	var lastErr error

	for _, tier := range []Tier{TierFull, TierNoExecutionState, TierTruncatedConfig} {
		data, err := json.Marshal(degradeSnapshot(snapshot, tier))
		if err != nil {
			return 0, fmt.Errorf("storage: marshaling snapshot: %w", err)
		}

		if err := saver.store.Save(ctx, data); err != nil {
			lastErr = err
			if saver.observer != nil {
				saver.observer.Warn("snapshot save failed, degrading",
					observability.String("tier", tier.String()),
					observability.Int("bytes", len(data)),
					observability.Error(err),
				)
			}
			continue
		}

		if tier != TierFull && saver.observer != nil {
			saver.observer.Warn("snapshot saved degraded",
				observability.String("tier", tier.String()),
			)
		}
		return tier, nil
	}

	if saver.observer != nil {
		saver.observer.Error("snapshot unrecoverable: all tiers failed",
			observability.Error(lastErr),
		)
	}
	return 0, fmt.Errorf("storage: all save tiers failed: %w", lastErr)
}

// Load reads the most recent blob and rebuilds the snapshot. Blobs written by
// degraded tiers restore with empty execution states for the affected nodes.
func (saver *Saver) Load(ctx context.Context) (workflow.Snapshot, error) {
	data, err := saver.store.Load(ctx)
	if err != nil {
		return workflow.Snapshot{}, err
	}

	var snapshot workflow.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return workflow.Snapshot{}, fmt.Errorf("storage: decoding snapshot: %w", err)
	}
	return snapshot, nil
}

// degradeSnapshot produces the snapshot variant for the given tier. The
// input snapshot is never mutated: degraded tiers build replacement maps and
// configs.
func degradeSnapshot(snapshot workflow.Snapshot, tier Tier) workflow.Snapshot {
	if tier == TierFull {
		return snapshot
	}

	degraded := workflow.Snapshot{
		Nodes:           make([]workflow.Node, len(snapshot.Nodes)),
		Edges:           snapshot.Edges,
		ExecutionStates: make(map[string]*workflow.ExecutionState, len(snapshot.Nodes)),
	}
	copy(degraded.Nodes, snapshot.Nodes)

	for _, node := range degraded.Nodes {
		degraded.ExecutionStates[node.ID] = workflow.NewExecutionState()
	}

	if tier == TierTruncatedConfig {
		for index := range degraded.Nodes {
			degraded.Nodes[index].Config = truncateConfig(degraded.Nodes[index].Config)
		}
	}

	return degraded
}

// truncateConfig blanks oversized text fields and clears file arrays.
func truncateConfig(config workflow.Config) workflow.Config {
	truncated := config.Clone()

	for _, field := range []*string{
		&truncated.Instructions,
		&truncated.Outline,
		&truncated.Draft,
		&truncated.Review,
		&truncated.Bibliography,
		&truncated.SecondarySources,
	} {
		if len(*field) > OversizeFieldThreshold {
			*field = OversizeSentinel
		}
	}

	truncated.BibliographyFiles = []protocol.File{}
	return truncated
}
