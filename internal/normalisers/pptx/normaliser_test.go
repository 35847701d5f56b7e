package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
)

const slideTemplate = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree>%s</p:spTree></p:cSld>
</p:sld>`

func shape(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString("<p:sp><p:txBody>")
	for _, p := range paragraphs {
		fmt.Fprintf(&b, "<a:p><a:r><a:t>%s</a:t></a:r></a:p>", p)
	}
	b.WriteString("</p:txBody></p:sp>")
	return b.String()
}

// buildDeck writes a minimal presentation with the given slide bodies.
func buildDeck(t *testing.T, slides map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range slides {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	assert.IsType(t, &Extractor{}, New())
	assert.Contains(t, New().SupportedMIMETypes(), MIMEType)
	assert.Contains(t, New().SupportedMIMETypes(), LegacyMIMEType)
}

func TestExtract_SlidesInNumericOrder(t *testing.T) {
	deck := buildDeck(t, map[string]string{
		"ppt/slides/slide10.xml":           fmt.Sprintf(slideTemplate, shape("Ten")),
		"ppt/slides/slide2.xml":            fmt.Sprintf(slideTemplate, shape("Two", "Second line")),
		"ppt/slides/slide1.xml":            fmt.Sprintf(slideTemplate, shape("Photosynthesis")+shape("Light reactions")),
		"ppt/slides/_rels/slide1.xml.rels": "<Relationships/>",
		"ppt/presentation.xml":             "<p:presentation/>",
	})

	text, err := New().Extract(context.Background(), deck)
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis\nLight reactions\nTwo\nSecond line\nTen\n", text)
}

func TestExtract_SlidesInPresentationOrder(t *testing.T) {
	pres := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
                xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:sldIdLst>
    <p:sldId id="256" r:id="rId3"/>
    <p:sldId id="257" r:id="rId2"/>
    <p:sldId id="258" r:id="rId4"/>
  </p:sldIdLst>
</p:presentation>`
	rels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="slideMaster" Target="slideMasters/slideMaster1.xml"/>
  <Relationship Id="rId2" Type="slide" Target="slides/slide1.xml"/>
  <Relationship Id="rId3" Type="slide" Target="slides/slide2.xml"/>
  <Relationship Id="rId4" Type="slide" Target="/ppt/slides/slide3.xml"/>
</Relationships>`
	deck := buildDeck(t, map[string]string{
		"ppt/presentation.xml":            pres,
		"ppt/_rels/presentation.xml.rels": rels,
		"ppt/slides/slide1.xml":           fmt.Sprintf(slideTemplate, shape("Moved to second")),
		"ppt/slides/slide2.xml":           fmt.Sprintf(slideTemplate, shape("Moved to first")),
		"ppt/slides/slide3.xml":           fmt.Sprintf(slideTemplate, shape("Last")),
		"ppt/slides/slide4.xml":           fmt.Sprintf(slideTemplate, shape("Not in the deck")),
	})

	text, err := New().Extract(context.Background(), deck)
	require.NoError(t, err)
	assert.Equal(t, "Moved to first\nMoved to second\nLast\n", text)
}

func TestExtract_MultipleRunsJoinWithinParagraph(t *testing.T) {
	body := `<p:sp><p:txBody><a:p><a:r><a:t>Cell </a:t></a:r><a:r><a:t>biology</a:t></a:r></a:p></p:txBody></p:sp>`
	deck := buildDeck(t, map[string]string{
		"ppt/slides/slide1.xml": fmt.Sprintf(slideTemplate, body),
	})

	text, err := New().Extract(context.Background(), deck)
	require.NoError(t, err)
	assert.Equal(t, "Cell biology\n", text)
}

func TestExtract_SkipsBrokenSlide(t *testing.T) {
	deck := buildDeck(t, map[string]string{
		"ppt/slides/slide1.xml": "<p:sld><unclosed",
		"ppt/slides/slide2.xml": fmt.Sprintf(slideTemplate, shape("Survivor")),
	})

	text, err := New().Extract(context.Background(), deck)
	require.NoError(t, err)
	assert.Equal(t, "Survivor\n", text)
}

func TestExtract_NoText(t *testing.T) {
	deck := buildDeck(t, map[string]string{
		"ppt/slides/slide1.xml": fmt.Sprintf(slideTemplate, ""),
	})

	_, err := New().Extract(context.Background(), deck)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_NotAZip(t *testing.T) {
	_, err := New().Extract(context.Background(), []byte("definitely not a zip"))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}
