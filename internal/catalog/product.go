package catalog

// Product is the normalized view of a backend product. It is rebuilt on
// every transform and never mutated afterwards.
type Product struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	About              string          `json:"about"`
	Price              int64           `json:"price"`
	DiscountedPrice    int64           `json:"discountedPrice"`
	HasDiscount        bool            `json:"hasDiscount"`
	DiscountPercentage float64         `json:"discountPercentage"`
	Image              string          `json:"image"`
	Images             []string        `json:"images"`
	Category           string          `json:"category"`
	CreatedOn          string          `json:"createdOn"`
	ModifiedOn         string          `json:"modifiedOn"`
	Benefits           []Benefit       `json:"benefits"`
	Features           []string        `json:"features"`
	Specifications     []Specification `json:"specifications"`
	Reviews            []Review        `json:"reviews"`

	// ReviewsMetaData is the summary as the server sent it, nil when absent.
	ReviewsMetaData *RatingSummary `json:"reviewsMetaData"`
	// Rating is the summary to display: the server's when present,
	// otherwise computed from Reviews.
	Rating RatingSummary `json:"rating"`
}

type Benefit struct {
	ID          int64  `json:"id"`
	Logo        string `json:"logo"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

type Specification struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

type Review struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Rating  float64 `json:"rating"`
	Date    string  `json:"date"`
	Comment string  `json:"comment"`
}

type RatingSummary struct {
	Average float64 `json:"averageRating"`
	Count   int     `json:"totalReviews"`
}

// Index maps products by id. Later duplicates win.
func Index(products []Product) map[int64]Product {
	idx := make(map[int64]Product, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx
}
