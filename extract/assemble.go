package extract

import (
	"math"

	"github.com/use-agent/shelfscan/dom"
	"github.com/use-agent/shelfscan/models"
)

// RejectReason explains why a candidate produced no record.
type RejectReason string

const (
	Accepted      RejectReason = ""
	RejectNoTitle RejectReason = "no_title"
	RejectNoPrice RejectReason = "no_price"

	// RejectNoAmount marks a price text with no usable amount: no digits,
	// or too many to be a single price.
	RejectNoAmount RejectReason = "no_amount"
)

// minPriceLength is the shortest display price a record may carry.
const minPriceLength = 2

// Assemble resolves every field of a candidate and combines them into a
// record. A nil record comes with the reason it was rejected.
func (e *Extractor) Assemble(c dom.Node, images ImageMap) (*models.ProductRecord, RejectReason) {
	title := e.Title(c)
	if title == "" || title == models.UnknownTitle {
		return nil, RejectNoTitle
	}
	price := e.Price(c)
	if runeLen(price) < minPriceLength {
		return nil, RejectNoPrice
	}

	amount := ParseDigits(price)
	if amount <= 0 {
		return nil, RejectNoAmount
	}

	productURL := e.URL(c)
	rec := &models.ProductRecord{
		Title:        title,
		Price:        price,
		PriceNumeric: amount,
		URL:          productURL,
		Image:        e.Image(c, productURL, images),
	}
	e.applyDiscount(rec, e.OldPrice(c), e.Discount(c))
	return rec, Accepted
}

// applyDiscount settles OldPrice from the directly read value and the
// discount badge. Without a discount there is no old price, even if one
// was read.
func (e *Extractor) applyDiscount(rec *models.ProductRecord, oldPrice, discount *string) {
	rec.Discount = discount
	if discount == nil {
		rec.OldPrice, rec.OldPriceNumeric = nil, nil
		return
	}

	if oldPrice != nil {
		n := ParseDigits(*oldPrice)
		rec.OldPrice, rec.OldPriceNumeric = oldPrice, &n
		return
	}

	pct := ParseDigits(*discount)
	if pct <= 0 || pct >= 100 || rec.PriceNumeric <= 0 {
		return
	}
	derived := DeriveOldPrice(rec.PriceNumeric, pct)
	formatted := e.FormatPrice(derived)
	rec.OldPrice, rec.OldPriceNumeric = &formatted, &derived
}

// DeriveOldPrice reverses a percentage discount: round(price / (1 - pct/100)).
func DeriveOldPrice(price, pct int64) int64 {
	return int64(math.Round(float64(price) / (1 - float64(pct)/100)))
}

// FormatPrice renders n with the locale's grouping and a "$ " prefix.
func (e *Extractor) FormatPrice(n int64) string {
	return "$ " + e.printer.Sprintf("%d", n)
}
