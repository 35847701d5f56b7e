// Package normalisers provides the text extractors of the document
// processor. Each extractor turns one document format into plain text
// and reports the MIME types it handles.
//
//   - html: table-aware HTML flattening
//   - pdf: page-by-page PDF text
//   - pptx: slide text from PowerPoint decks
//
// Extractors are registered with services.DocumentProcessor at startup.
package normalisers
