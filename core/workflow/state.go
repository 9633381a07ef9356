package workflow

import (
	"time"

	"github.com/eli0s78/Universal-Academic-Workflow/providers/protocol"
)

// ConversationState is the per-node state machine driven by the execution
// controller.
//
// Transitions: StateConfiguring -> StateProcessing ->
// {StateAwaitingUserAction | StateCompleted | StateError}. From
// StateAwaitingUserAction a user continuation re-enters StateProcessing;
// from StateError a retry re-enters StateProcessing. StateCompleted is not
// terminal: a completed node may be re-run, appending further messages.
type ConversationState string

const (
	StateConfiguring        ConversationState = "configuring"
	StateProcessing         ConversationState = "processing"
	StateAwaitingUserAction ConversationState = "awaiting_user_action"
	StateCompleted          ConversationState = "completed"
	StateError              ConversationState = "error"
)

// MessageRole labels who authored a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in a node's conversation log. Hidden messages carry
// the constructed prompt payload for audit and never render in the UI.
type Message struct {
	ID            string              `json:"id"`
	Role          MessageRole         `json:"role"`
	Content       string              `json:"content"`
	Hidden        bool                `json:"hidden,omitempty"`
	Duration      time.Duration       `json:"duration,omitempty"`
	Citations     []protocol.Citation `json:"citations,omitempty"`
	SearchQueries []string            `json:"search_queries,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// LogEntry is one timestamped line in a node's run log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// VersionSource tags the provenance of a section version. It never changes
// after creation.
type VersionSource string

const (
	SourceAIGenerated VersionSource = "ai-generated"
	SourceUserEdited  VersionSource = "user-edited"
	SourceAIRevised   VersionSource = "ai-revised"
	SourceUserAdded   VersionSource = "user-added"
)

// SectionVersion is one immutable revision of a section's content.
type SectionVersion struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	Source    VersionSource `json:"source"`
}

// VersionedSection is a user-curated content unit with an append-only version
// history and exactly one active version.
//
// Invariants: Versions is non-empty and append-only; ActiveVersionID always
// references an element of Versions.
type VersionedSection struct {
	ID              string           `json:"id"`
	Order           int              `json:"order"`
	Title           string           `json:"title"`
	Versions        []SectionVersion `json:"versions"`
	ActiveVersionID string           `json:"active_version_id"`
	SourceMessageID string           `json:"source_message_id,omitempty"`
}

// ActiveVersion returns the section's currently active version, or nil if the
// active ID references nothing (which indicates a corrupted section).
func (section *VersionedSection) ActiveVersion() *SectionVersion {
	for index := range section.Versions {
		if section.Versions[index].ID == section.ActiveVersionID {
			return &section.Versions[index]
		}
	}
	return nil
}

// ExecutionState is the accumulated run state of one node. It shares the
// node's lifetime, keyed by node ID.
type ExecutionState struct {
	Messages []Message          `json:"messages"`
	State    ConversationState  `json:"state"`
	Sections []VersionedSection `json:"sections"`
	Elapsed  time.Duration      `json:"elapsed,omitempty"`
	Logs     []LogEntry         `json:"logs,omitempty"`
	Usage    protocol.Usage     `json:"usage"`
}

// NewExecutionState creates the empty state a node starts with.
func NewExecutionState() *ExecutionState {
	return &ExecutionState{
		Messages: make([]Message, 0),
		State:    StateConfiguring,
		Sections: make([]VersionedSection, 0),
		Logs:     make([]LogEntry, 0),
	}
}

// VisibleAssistantText concatenates the content of all non-hidden assistant
// messages in order, separated by blank lines. The resolver uses this as a
// node's produced content when no document sections exist.
func (state *ExecutionState) VisibleAssistantText() string {
	var parts []string
	for _, message := range state.Messages {
		if message.Role == RoleAssistant && !message.Hidden && message.Content != "" {
			parts = append(parts, message.Content)
		}
	}
	return joinBlocks(parts)
}

// SectionText concatenates the active version of every section in Order,
// separated by blank lines.
func (state *ExecutionState) SectionText() string {
	ordered := make([]VersionedSection, len(state.Sections))
	copy(ordered, state.Sections)
	sortSectionsByOrder(ordered)

	var parts []string
	for index := range ordered {
		if active := ordered[index].ActiveVersion(); active != nil && active.Content != "" {
			parts = append(parts, active.Content)
		}
	}
	return joinBlocks(parts)
}

// Log appends a timestamped entry to the node's run log.
func (state *ExecutionState) Log(message string) {
	state.Logs = append(state.Logs, LogEntry{
		Timestamp: time.Now(),
		Message:   message,
	})
}

func sortSectionsByOrder(sections []VersionedSection) {
	// Insertion sort: section lists are small and usually already ordered.
	for outer := 1; outer < len(sections); outer++ {
		for inner := outer; inner > 0 && sections[inner].Order < sections[inner-1].Order; inner-- {
			sections[inner], sections[inner-1] = sections[inner-1], sections[inner]
		}
	}
}

func joinBlocks(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	joined := parts[0]
	for _, part := range parts[1:] {
		joined += "\n\n" + part
	}
	return joined
}
