package extract

import "github.com/use-agent/shelfscan/dom"

// Input is what a resolver sees for one candidate. URL and Images are
// filled in before the image chain runs.
type Input struct {
	Node   dom.Node
	URL    string
	Images ImageMap
}

// Resolver is one strategy in a fallback chain. It returns "" when it
// cannot resolve the field.
type Resolver func(in *Input) string

// Chain is an ordered list of resolvers; the first non-empty result wins.
type Chain []Resolver

// Resolve runs the chain.
func (c Chain) Resolve(in *Input) string {
	for _, r := range c {
		if v := r(in); v != "" {
			return v
		}
	}
	return ""
}
