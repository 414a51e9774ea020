package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<html><body>
  <div class="grid">
    <div class="Pod-ProductItem" id="a"><a href="/p/1" title="First   item">x</a></div>
    <div class="other" id="b"><span>  hello
       world </span><img data-src="/img.jpg"></div>
  </div>
</body></html>`

func TestParse_FindDescendantsDocumentOrder(t *testing.T) {
	root, err := Parse(fixture)
	require.NoError(t, err)

	divs := root.FindDescendants(HasTag("div"))
	require.Len(t, divs, 3)

	ids := make([]string, 0, len(divs))
	for _, d := range divs {
		id, _ := d.Attr("id")
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"", "a", "b"}, ids)
}

func TestNode_TextIsNormalized(t *testing.T) {
	root, err := Parse(fixture)
	require.NoError(t, err)

	span, ok := root.First(HasTag("span"))
	require.True(t, ok)
	assert.Equal(t, "hello world", span.Text())
	assert.Equal(t, "span", span.Tag())
}

func TestMatchCSS(t *testing.T) {
	root, err := Parse(fixture)
	require.NoError(t, err)

	matches := root.FindDescendants(MatchCSS(`a[title]`))
	require.Len(t, matches, 1)
	title, ok := matches[0].Attr("title")
	assert.True(t, ok)
	assert.Equal(t, "First   item", title)
}

func TestAttrContainsFold(t *testing.T) {
	root, err := Parse(fixture)
	require.NoError(t, err)

	n, ok := root.First(AttrContainsFold("class", "product-item"))
	assert.False(t, ok, "substring must be contiguous")
	assert.Nil(t, n)

	n, ok = root.First(AttrContainsFold("class", "productitem"))
	require.True(t, ok)
	id, _ := n.Attr("id")
	assert.Equal(t, "a", id)
}

func TestAny(t *testing.T) {
	root, err := Parse(fixture)
	require.NoError(t, err)

	got := root.FindDescendants(Any(HasTag("img"), HasTag("a")))
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Tag())
	assert.Equal(t, "img", got[1].Tag())
}

func TestNormalizeSpace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeSpace("  a\n\tb   c "))
	assert.Equal(t, "", NormalizeSpace(" \n "))
}
