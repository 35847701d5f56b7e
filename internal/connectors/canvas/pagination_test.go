package canvas

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

const canvasLink = `<https://canvas.example.edu/api/v1/courses/1/pages?page=1&per_page=100>; rel="current",` +
	`<https://canvas.example.edu/api/v1/courses/1/pages?page=2&per_page=100>; rel="next",` +
	`<https://canvas.example.edu/api/v1/courses/1/pages?page=1&per_page=100>; rel="first",` +
	`<https://canvas.example.edu/api/v1/courses/1/pages?page=3&per_page=100>; rel="last"`

func TestParseNextLink(t *testing.T) {
	assert.Equal(t, "https://canvas.example.edu/api/v1/courses/1/pages?page=2&per_page=100", ParseNextLink(canvasLink))
	assert.Empty(t, ParseNextLink(""))
	assert.Empty(t, ParseNextLink(`<https://canvas.example.edu/x>; rel="last"`))
}

func TestParseAllLinks(t *testing.T) {
	links := ParseAllLinks(canvasLink)
	assert.Len(t, links, 4)
	assert.Contains(t, links["last"], "page=3")
	assert.Empty(t, ParseAllLinks(""))
}

func TestHasNextPage(t *testing.T) {
	assert.True(t, HasNextPage(canvasLink))
	assert.False(t, HasNextPage(`<https://canvas.example.edu/x>; rel="current"`))
}

func TestSameHost(t *testing.T) {
	base, _ := url.Parse("https://canvas.example.edu/api/v1")
	assert.True(t, sameHost(base, "https://canvas.example.edu/api/v1/courses?page=2"))
	assert.True(t, sameHost(base, "https://CANVAS.example.edu/api/v1/courses?page=2"))
	assert.False(t, sameHost(base, "http://canvas.example.edu/api/v1/courses?page=2"))
	assert.False(t, sameHost(base, "https://other.example.edu/api/v1/courses?page=2"))
	assert.False(t, sameHost(base, "://bad"))
}
