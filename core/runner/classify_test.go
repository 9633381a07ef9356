package runner

import (
	"strings"
	"testing"
)

func TestClassifyResponse_CompletedText(testCase *testing.T) {
	text := "# Chapter One\n\nThe chapter is now complete with all requested sections."
	classification := ClassifyResponse(text)

	if classification.AwaitingUser {
		testCase.Error("completed text misclassified as awaiting user input")
	}
	if classification.CleanText != text {
		testCase.Errorf("clean text altered for a non-awaiting response: %q", classification.CleanText)
	}
}

func TestClassifyResponse_DetectsTriggerPhrases(testCase *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"awaiting command", "Outline drafted. Awaiting command."},
		{"mixed case", "Done so far. AWAITING YOUR INSTRUCTIONS."},
		{"mid-text question", "I found two frameworks. Which specific theory should I apply here?"},
		{"shall i proceed", "The outline covers five chapters. Shall I proceed with chapter one?"},
		{"please confirm", "This will replace the current draft. Please confirm."},
		{"missing input", "Please provide the missing bibliography entries for section two."},
	}

	for _, test := range tests {
		testCase.Run(test.name, func(testCase *testing.T) {
			classification := ClassifyResponse(test.text)
			if !classification.AwaitingUser {
				testCase.Errorf("expected awaiting classification for %q", test.text)
			}
		})
	}
}

func TestClassifyResponse_StripsTrailingBoilerplate(testCase *testing.T) {
	text := "Here is the revised outline with your changes applied.\n\nAwaiting your command."
	classification := ClassifyResponse(text)

	if !classification.AwaitingUser {
		testCase.Fatal("expected awaiting classification")
	}
	if strings.Contains(strings.ToLower(classification.CleanText), "awaiting") {
		testCase.Errorf("boilerplate not stripped: %q", classification.CleanText)
	}
	if !strings.Contains(classification.CleanText, "revised outline") {
		testCase.Errorf("substantive content lost: %q", classification.CleanText)
	}
	if strings.HasSuffix(classification.CleanText, "\n") {
		testCase.Errorf("trailing whitespace left behind: %q", classification.CleanText)
	}
}

func TestClassifyResponse_KeepsMidTextTriggerContent(testCase *testing.T) {
	// A trigger phrase in the middle of the text flips classification but must
	// not remove anything: only trailing boilerplate is stripped.
	text := "Shall I proceed with the full draft? Here is a preview of section one."
	classification := ClassifyResponse(text)

	if !classification.AwaitingUser {
		testCase.Fatal("expected awaiting classification")
	}
	if classification.CleanText != text {
		testCase.Errorf("mid-text trigger altered content: %q", classification.CleanText)
	}
}

func TestClassifyResponse_IsPure(testCase *testing.T) {
	text := "Outline ready. Awaiting confirmation."
	first := ClassifyResponse(text)
	second := ClassifyResponse(text)

	if first != second {
		testCase.Errorf("classification not deterministic: %+v vs %+v", first, second)
	}
}
