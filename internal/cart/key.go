package cart

import "strings"

// Line-item keys join product id, variant color, and variant size with '|'.
// The arity is fixed: empty variant fields still contribute an empty segment,
// so "p1" + "" + "" encodes as "p1||". Product ids and variant names come
// from a foreign catalog with no charset contract, so occurrences of the
// separator or the escape character inside a segment are escaped rather than
// assumed absent.
const (
	keySeparator = '|'
	keyEscape    = '\\'
)

// LineItemKey derives the composite identity of a line item from its product
// id and chosen variant attributes. The encoding is deterministic and
// injective: distinct (productID, color, size) triples never collide.
func LineItemKey(productID, color, size string) string {
	var b strings.Builder
	b.Grow(len(productID) + len(color) + len(size) + 2)
	appendKeySegment(&b, productID)
	b.WriteByte(keySeparator)
	appendKeySegment(&b, color)
	b.WriteByte(keySeparator)
	appendKeySegment(&b, size)
	return b.String()
}

func appendKeySegment(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		if s[i] == keySeparator || s[i] == keyEscape {
			b.WriteByte(keyEscape)
		}
		b.WriteByte(s[i])
	}
}
