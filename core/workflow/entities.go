package workflow

import (
	"github.com/eli0s78/Universal-Academic-Workflow/providers/protocol"
)

// NodeType identifies which generation protocol a node runs. It is immutable
// after creation and drives the context resolver's merge rules.
type NodeType string

const (
	// TypeProjectDefinition holds project-wide metadata (title, subtitle,
	// word-count target, language, global instructions) that propagates to
	// every downstream node.
	TypeProjectDefinition NodeType = "project_definition"

	// TypeContextLibrary pre-digests raw source documents into a labeled
	// knowledge extract for downstream consumption.
	TypeContextLibrary NodeType = "context_library"

	// TypeOutline produces a chapter-level outline.
	TypeOutline NodeType = "outline"

	// TypeChapter drafts chapter text from an outline.
	TypeChapter NodeType = "chapter"

	// TypeCritique reviews a draft and produces revision directives.
	TypeCritique NodeType = "critique"

	// TypeSynthesis merges a draft with critique directives into a revised
	// draft.
	TypeSynthesis NodeType = "synthesis"

	// TypeCitationCheck verifies the citations of a draft.
	TypeCitationCheck NodeType = "citation_check"

	// TypeNotes generates study notes from accumulated source content.
	TypeNotes NodeType = "notes"
)

// Valid reports whether the node type is one of the known protocol kinds.
func (nodeType NodeType) Valid() bool {
	switch nodeType {
	case TypeProjectDefinition, TypeContextLibrary, TypeOutline, TypeChapter,
		TypeCritique, TypeSynthesis, TypeCitationCheck, TypeNotes:
		return true
	}
	return false
}

// NodeStatus is the coarse lifecycle status of a node as shown on the canvas.
// The finer-grained conversation state machine lives in ExecutionState.
type NodeStatus string

const (
	// StatusIdle indicates the node has never run or was reset.
	StatusIdle NodeStatus = "idle"

	// StatusRunning indicates a run is currently in flight.
	StatusRunning NodeStatus = "running"

	// StatusCompleted indicates the most recent run finished successfully.
	StatusCompleted NodeStatus = "completed"

	// StatusError indicates the most recent run failed.
	StatusError NodeStatus = "error"
)

// Position is the node's location on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Metadata is the shared subrecord of Config that the project-definition
// protocol propagates to every downstream node.
type Metadata struct {
	Title        string `json:"title,omitempty"`
	Subtitle     string `json:"subtitle,omitempty"`
	WordCount    int    `json:"word_count,omitempty"`
	Language     string `json:"language,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Config is the full configuration record of a node. It is a superset of the
// fields any single protocol needs; fields irrelevant to a node's type are
// ignored by that node's run but still carried, so a node can forward
// inherited values down a chain.
type Config struct {
	Metadata

	// Outline is the chapter outline a drafting node works from.
	Outline string `json:"outline,omitempty"`

	// Draft is the text a critique, citation-check or synthesis node
	// operates on.
	Draft string `json:"draft,omitempty"`

	// Review holds critique directives for a synthesis node.
	Review string `json:"review,omitempty"`

	// Bibliography is digested secondary-source text, either entered by the
	// user, produced by extraction, or inherited already resolved from an
	// upstream node.
	Bibliography string `json:"bibliography,omitempty"`

	// BibliographyFiles are parsed source documents awaiting digestion.
	BibliographyFiles []protocol.File `json:"bibliography_files,omitempty"`

	// SecondarySources accumulates labeled content from upstream nodes for
	// note generation and context-library consumers.
	SecondarySources string `json:"secondary_sources,omitempty"`
}

// Clone returns a deep copy of the config. Slices are copied so mutations of
// the clone never reach the original.
func (config Config) Clone() Config {
	clone := config
	if len(config.BibliographyFiles) > 0 {
		clone.BibliographyFiles = make([]protocol.File, len(config.BibliographyFiles))
		copy(clone.BibliographyFiles, config.BibliographyFiles)
	}
	return clone
}

// Node is one configured step in the workflow graph.
type Node struct {
	ID       string     `json:"id"`
	Type     NodeType   `json:"type"`
	Label    string     `json:"label,omitempty"`
	Position Position   `json:"position"`
	Config   Config     `json:"config"`
	Status   NodeStatus `json:"status"`
}

// DisplayName returns the node's label if set, otherwise a readable fallback
// derived from its type. The resolver records this name in provenance maps.
func (node *Node) DisplayName() string {
	if node.Label != "" {
		return node.Label
	}
	return string(node.Type)
}

// Edge is a directed dependency from one node's output to another's input.
// Endpoints are weak references by node ID: consumers must validate them
// against the current node set before use.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}
