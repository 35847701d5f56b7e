// Package pptx extracts slide text from PowerPoint presentations.
package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// MIMEType is the OOXML presentation type.
const MIMEType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// LegacyMIMEType is reported by Canvas for some .ppt and .pptx uploads.
const LegacyMIMEType = "application/vnd.ms-powerpoint"

// drawingNS is the DrawingML namespace holding paragraphs and text runs.
const drawingNS = "http://schemas.openxmlformats.org/drawingml/2006/main"

const (
	presentationPart = "ppt/presentation.xml"
	presentationRels = "ppt/_rels/presentation.xml.rels"
)

var errMissingPart = errors.New("pptx: missing part")

var slidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Extractor handles PPTX documents.
type Extractor struct{}

// New creates a new PPTX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{MIMEType, LegacyMIMEType}
}

// Extract returns the text of every slide in order, one paragraph per line.
// A slide that cannot be read is skipped. A deck with no text at all
// fails with domain.ErrExtractionFailed.
func (e *Extractor) Extract(_ context.Context, content []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: open presentation: %v", domain.ErrExtractionFailed, err)
	}

	var result strings.Builder
	for _, slide := range slides(reader) {
		text, err := readSlide(slide.file)
		if err != nil {
			logger.Warn("pptx: skipping slide %d: %v", slide.number, err)
			continue
		}
		if text != "" {
			result.WriteString(text)
			result.WriteString("\n")
		}
	}

	if strings.TrimSpace(result.String()) == "" {
		return "", fmt.Errorf("%w: no text in presentation", domain.ErrExtractionFailed)
	}
	return result.String(), nil
}

type slideFile struct {
	number int
	file   *zip.File
}

// presentation is the slide list of ppt/presentation.xml.
type presentation struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

// relationships is a .rels part.
type relationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// slides returns the slide parts in presentation order. Decks without a
// readable slide list fall back to slide part number order.
func slides(reader *zip.Reader) []slideFile {
	if ordered := slidesInDeckOrder(reader); len(ordered) > 0 {
		return ordered
	}
	return slidesByNumber(reader)
}

// slidesInDeckOrder follows p:sldIdLst through the presentation
// relationships to the slide parts.
func slidesInDeckOrder(reader *zip.Reader) []slideFile {
	files := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		files[f.Name] = f
	}

	var pres presentation
	if err := decodePart(files[presentationPart], &pres); err != nil {
		return nil
	}
	var rels relationships
	if err := decodePart(files[presentationRels], &rels); err != nil {
		return nil
	}
	targets := make(map[string]string, len(rels.Items))
	for _, rel := range rels.Items {
		targets[rel.ID] = rel.Target
	}

	var out []slideFile
	for i, id := range pres.SlideIDs {
		target, ok := targets[id.RelID]
		if !ok {
			continue
		}
		name := resolvePart(target)
		if f, ok := files[name]; ok {
			out = append(out, slideFile{number: i + 1, file: f})
		}
	}
	return out
}

// resolvePart turns a relationship target of presentation.xml into a
// zip part name.
func resolvePart(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Join("ppt", target)
}

// decodePart unmarshals an XML part. A missing part is an error.
func decodePart(f *zip.File, v any) error {
	if f == nil {
		return errMissingPart
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}

// slidesByNumber returns the slide parts sorted by slide number.
func slidesByNumber(reader *zip.Reader) []slideFile {
	var out []slideFile
	for _, f := range reader.File {
		m := slidePath.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, slideFile{number: n, file: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out
}

// readSlide extracts the text of one slide part.
func readSlide(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return parseSlideXML(rc)
}

// parseSlideXML collects a:t runs, ending a line at each a:p.
func parseSlideXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		lines  []string
		line   strings.Builder
		inText bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == drawingNS && t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Space != drawingNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					lines = append(lines, s)
				}
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}

	if s := strings.TrimSpace(line.String()); s != "" {
		lines = append(lines, s)
	}
	return strings.Join(lines, "\n"), nil
}
