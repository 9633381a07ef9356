// Package parsing implements the file-parsing capability: turning raw
// uploaded source documents into named text files ready for extraction.
//
// Plain text and markdown pass through unchanged; HTML is converted to
// markdown. Binary formats (PDF, DOCX) are handled by external tooling and
// surface here only as per-file errors. A batch tolerates partial failure:
// every file that parses is returned alongside the errors of those that
// did not.
package parsing

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/eli0s78/Universal-Academic-Workflow/providers/protocol"
)

// RawFile is an uploaded document before parsing.
type RawFile struct {
	Name string
	Data []byte
}

// Output collects the files that parsed and the errors of those that did not.
// Both slices may be non-empty at the same time.
type Output struct {
	Files  []protocol.File
	Errors []string
}

// Parser converts raw uploaded documents into extractable text files.
type Parser interface {
	Parse(rawFiles []RawFile) Output
}

// TextParser is the built-in Parser for text-based formats (.txt, .md,
// .markdown, .html, .htm). It is stateless and safe for concurrent use.
type TextParser struct{}

var _ Parser = (*TextParser)(nil)

// NewTextParser creates a TextParser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse converts each raw file independently. A failed file contributes one
// entry to Output.Errors and never aborts the batch.
func (parser *TextParser) Parse(rawFiles []RawFile) Output {
	output := Output{
		Files:  make([]protocol.File, 0, len(rawFiles)),
		Errors: make([]string, 0),
	}

	for _, rawFile := range rawFiles {
		content, err := parser.parseOne(rawFile)
		if err != nil {
			output.Errors = append(output.Errors, fmt.Sprintf("%s: %v", rawFile.Name, err))
			continue
		}
		output.Files = append(output.Files, protocol.File{
			Name:    rawFile.Name,
			Content: content,
		})
	}

	return output
}

func (parser *TextParser) parseOne(rawFile RawFile) (string, error) {
	if len(rawFile.Data) == 0 {
		return "", fmt.Errorf("file is empty")
	}

	extension := strings.ToLower(filepath.Ext(rawFile.Name))
	switch extension {
	case ".txt", ".md", ".markdown":
		if !utf8.Valid(rawFile.Data) {
			return "", fmt.Errorf("file is not valid UTF-8 text")
		}
		return string(rawFile.Data), nil

	case ".html", ".htm":
		markdown, err := htmltomarkdown.ConvertString(string(rawFile.Data))
		if err != nil {
			return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
		}
		return markdown, nil

	default:
		return "", fmt.Errorf("unsupported file format %q", extension)
	}
}
