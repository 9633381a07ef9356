package runner

import "strings"

// The model signals that it is waiting for user input with free-form phrasing
// rather than a structured marker. Detection is a case-insensitive substring
// match against a fixed phrase table. The heuristic is inherently fragile, so
// it lives behind this single pure function and nowhere else.
var awaitingTriggerPhrases = []string{
	"awaiting command",
	"awaiting your command",
	"awaiting instructions",
	"awaiting your instructions",
	"awaiting confirmation",
	"please confirm",
	"confirm to proceed",
	"which specific theory",
	"which option would you",
	"shall i proceed",
	"do you want me to continue",
	"let me know how you would like to proceed",
	"please provide the missing",
}

// Trailing boilerplate stripped from the visible text once an awaiting signal
// is detected. Longer phrases come first so a more specific match wins.
var trailingBoilerplate = []string{
	"let me know how you would like to proceed.",
	"awaiting your command.",
	"awaiting your instructions.",
	"awaiting command.",
	"awaiting instructions.",
	"awaiting confirmation.",
	"please confirm to proceed.",
}

// Classification is the outcome of interpreting a model response.
type Classification struct {
	// AwaitingUser is true when the response asks for user input before the
	// protocol can continue.
	AwaitingUser bool

	// CleanText is the response text to store and display, with trailing
	// boilerplate removed.
	CleanText string
}

// ClassifyResponse scans free-form model output for awaiting-input trigger
// phrases and strips known trailing boilerplate from the visible text. It is
// pure: same input, same classification.
func ClassifyResponse(responseText string) Classification {
	lowered := strings.ToLower(responseText)

	awaiting := false
	for _, phrase := range awaitingTriggerPhrases {
		if strings.Contains(lowered, phrase) {
			awaiting = true
			break
		}
	}

	cleanText := responseText
	if awaiting {
		cleanText = stripTrailingBoilerplate(responseText)
	}

	return Classification{
		AwaitingUser: awaiting,
		CleanText:    cleanText,
	}
}

func stripTrailingBoilerplate(text string) string {
	trimmed := strings.TrimRight(text, " \t\n")
	lowered := strings.ToLower(trimmed)

	for _, phrase := range trailingBoilerplate {
		if strings.HasSuffix(lowered, phrase) {
			return strings.TrimRight(trimmed[:len(trimmed)-len(phrase)], " \t\n")
		}
	}
	return trimmed
}
