// Package export declares the consumed export and rendering capabilities.
// Serialization of markdown into DOCX/PDF and markdown-to-HTML rendering
// happen outside the engine; these interfaces are the seam the host
// application plugs its implementations into.
package export

// DocumentExporter serializes markdown text into downloadable artifacts.
// Implementations are pure in the engine's view: the only side effect is the
// generated file.
type DocumentExporter interface {
	ToDocx(markdownText, filename string) error
	ToPDF(markdownText, filename string) error
}

// HTMLRenderer converts markdown into HTML, either for display or in a
// clipboard-friendly inline-styled form.
type HTMLRenderer interface {
	MarkdownToHTML(text string, forClipboard bool) (string, error)
}
