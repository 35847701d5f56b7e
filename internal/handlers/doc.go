// Package handlers turns Canvas course content into chunks.
//
// There is one handler per content type. Each lists its items through the
// Canvas client, builds the metadata every chunk carries, extracts plain
// text and hands it to the document processor. The fetch and chunk loop is
// shared; the handlers differ only in how they list items, which fields
// they add to the metadata and where their text lives.
//
// Content IDs are prefixed with the content type ("page_12", "file_7") so
// identifiers from different Canvas tables never collide.
package handlers
