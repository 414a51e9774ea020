package models

// UnknownTitle is the title sentinel for a candidate whose title chain
// resolved nothing. Records carrying it are never emitted.
const UnknownTitle = "Unknown Product"

// ProductRecord is one listed product. Nil pointer fields are absent.
//
// OldPrice is non-nil only when Discount is non-nil, and PriceNumeric
// always equals the digits of Price.
type ProductRecord struct {
	Title           string  `json:"title"`
	Price           string  `json:"price"`
	PriceNumeric    int64   `json:"priceNumeric"`
	OldPrice        *string `json:"oldPrice"`
	OldPriceNumeric *int64  `json:"oldPriceNumeric"`
	Discount        *string `json:"discount"`
	URL             string  `json:"url"`
	Image           string  `json:"image"`
}

// PageRecord is a category, collection or brand page found in pages mode.
type PageRecord struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Image        string `json:"image"`
	ProductCount *int   `json:"productCount,omitempty"`
}
