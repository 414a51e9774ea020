package extract

import "github.com/use-agent/shelfscan/dom"

// Fallback text band for candidate blocks. Both bounds are exclusive.
const (
	minCandidateText = 30
	maxCandidateText = 1000
)

// productContainer is the primary candidate vocabulary.
var productContainer = dom.Any(
	dom.AttrContainsFold("class", "product-item"),
	dom.AttrContainsFold("class", "productitem"),
	dom.AttrContainsFold("data-testid", "product"),
	dom.AttrContainsFold("data-pod", "product"),
	dom.AttrContainsFold("data-pod", "pod"),
)

var isAnchor = dom.HasTag("a")

// SelectCandidates returns the elements likely to be one product block, in
// document order.
//
// Nested matches are not suppressed: when the fallback scan accepts both a
// block and its wrapper, both are returned and the accumulator's URL dedup
// absorbs the duplicate.
func SelectCandidates(root dom.Node) []dom.Node {
	if primary := root.FindDescendants(productContainer); len(primary) > 0 {
		return primary
	}
	return root.FindDescendants(looksLikeProductBlock)
}

func looksLikeProductBlock(n dom.Node) bool {
	text := n.Text()
	if l := runeLen(text); l <= minCandidateText || l >= maxCandidateText {
		return false
	}
	if !reAmountWithDigit.MatchString(text) {
		return false
	}
	_, ok := n.First(isAnchor)
	return ok
}
