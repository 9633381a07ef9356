package parsing

import (
	"strings"
	"testing"
)

func TestParse_PlainTextAndMarkdownPassThrough(testCase *testing.T) {
	parser := NewTextParser()
	output := parser.Parse([]RawFile{
		{Name: "notes.txt", Data: []byte("Plain notes.")},
		{Name: "outline.md", Data: []byte("# Outline\n\n1. Intro")},
	})

	if len(output.Errors) != 0 {
		testCase.Fatalf("unexpected errors: %v", output.Errors)
	}
	if len(output.Files) != 2 {
		testCase.Fatalf("expected 2 files, got %d", len(output.Files))
	}
	if output.Files[0].Content != "Plain notes." {
		testCase.Errorf("text content altered: %q", output.Files[0].Content)
	}
	if output.Files[1].Content != "# Outline\n\n1. Intro" {
		testCase.Errorf("markdown content altered: %q", output.Files[1].Content)
	}
}

func TestParse_ConvertsHTML(testCase *testing.T) {
	parser := NewTextParser()
	output := parser.Parse([]RawFile{
		{Name: "page.html", Data: []byte("<h1>Title</h1><p>Some <strong>bold</strong> text.</p>")},
	})

	if len(output.Errors) != 0 {
		testCase.Fatalf("unexpected errors: %v", output.Errors)
	}
	if len(output.Files) != 1 {
		testCase.Fatalf("expected 1 file, got %d", len(output.Files))
	}
	content := output.Files[0].Content
	if !strings.Contains(content, "# Title") {
		testCase.Errorf("heading not converted to markdown: %q", content)
	}
	if !strings.Contains(content, "**bold**") {
		testCase.Errorf("emphasis not converted to markdown: %q", content)
	}
	if strings.Contains(content, "<p>") {
		testCase.Errorf("HTML tags leaked into output: %q", content)
	}
}

func TestParse_PartialFailureKeepsGoodFiles(testCase *testing.T) {
	parser := NewTextParser()
	output := parser.Parse([]RawFile{
		{Name: "good.txt", Data: []byte("Fine.")},
		{Name: "scan.pdf", Data: []byte{0x25, 0x50, 0x44, 0x46}},
		{Name: "empty.md", Data: nil},
		{Name: "broken.txt", Data: []byte{0xff, 0xfe, 0xfd}},
	})

	if len(output.Files) != 1 || output.Files[0].Name != "good.txt" {
		testCase.Fatalf("expected only good.txt to parse, got %+v", output.Files)
	}
	if len(output.Errors) != 3 {
		testCase.Fatalf("expected 3 errors, got %d: %v", len(output.Errors), output.Errors)
	}

	wantFragments := map[string]string{
		"scan.pdf":   "unsupported file format",
		"empty.md":   "empty",
		"broken.txt": "not valid UTF-8",
	}
	for _, message := range output.Errors {
		matched := false
		for name, fragment := range wantFragments {
			if strings.HasPrefix(message, name) && strings.Contains(message, fragment) {
				matched = true
				break
			}
		}
		if !matched {
			testCase.Errorf("unexpected error message: %q", message)
		}
	}
}

func TestParse_CaseInsensitiveExtensions(testCase *testing.T) {
	parser := NewTextParser()
	output := parser.Parse([]RawFile{
		{Name: "NOTES.TXT", Data: []byte("Upper case extension.")},
		{Name: "Page.HTML", Data: []byte("<p>ok</p>")},
	})

	if len(output.Errors) != 0 {
		testCase.Fatalf("unexpected errors: %v", output.Errors)
	}
	if len(output.Files) != 2 {
		testCase.Fatalf("expected 2 files, got %d", len(output.Files))
	}
}

func TestParse_EmptyBatch(testCase *testing.T) {
	parser := NewTextParser()
	output := parser.Parse(nil)

	if len(output.Files) != 0 || len(output.Errors) != 0 {
		testCase.Errorf("expected empty output, got %+v", output)
	}
}
