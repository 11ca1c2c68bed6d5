package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/ceremic-storefront/internal/backend"
)

const (
	DefaultCategory = "new"
	AnonymousName   = "Anonymous"
)

var hundred = decimal.NewFromInt(100)

// Transformer turns raw backend products into Products. It has no side
// effects; the clock only supplies a date for reviews that carry none.
type Transformer struct {
	now func() time.Time
}

func NewTransformer(now func() time.Time) *Transformer {
	if now == nil {
		now = time.Now
	}
	return &Transformer{now: now}
}

// Transform returns nil for a nil input.
func (t *Transformer) Transform(raw *backend.RawProduct) *Product {
	if raw == nil {
		return nil
	}

	p := &Product{
		ID:              raw.ID,
		Name:            raw.Name,
		Description:     raw.Description,
		About:           raw.About,
		Price:           raw.Price,
		DiscountedPrice: raw.Price,
		Category:        DefaultCategory,
		CreatedOn:       raw.CreatedOn,
		ModifiedOn:      raw.ModifiedOn,
	}

	if raw.Discounts != nil && raw.Discounts.Enable && raw.Discounts.Discount > 0 {
		p.HasDiscount = true
		p.DiscountPercentage = raw.Discounts.Discount
		p.DiscountedPrice = DiscountedPrice(raw.Price, raw.Discounts.Discount)
	}

	p.Images = orderImages(raw.Images, raw.Image)
	if len(p.Images) > 0 {
		p.Image = p.Images[0]
	}

	p.Benefits = make([]Benefit, 0, len(raw.Benefits))
	for _, b := range raw.Benefits {
		p.Benefits = append(p.Benefits, Benefit{
			ID:          b.ID,
			Logo:        strings.TrimSpace(b.Logo),
			Value:       b.Value,
			Description: b.Description,
		})
	}

	p.Features = make([]string, 0, len(raw.ProductLovePoints))
	for _, lp := range raw.ProductLovePoints {
		p.Features = append(p.Features, lp.Value)
	}

	p.Specifications = make([]Specification, 0, len(raw.ProductDetails))
	for _, d := range raw.ProductDetails {
		spec := Specification{ID: d.ID, Value: d.Value}
		if d.Dimension != nil {
			spec.Label = d.Dimension.Name
			spec.Value = strings.TrimSpace(d.Value + " " + d.Dimension.Unit)
		}
		p.Specifications = append(p.Specifications, spec)
	}

	p.Reviews = make([]Review, 0, len(raw.Reviews))
	for _, r := range raw.Reviews {
		p.Reviews = append(p.Reviews, t.review(r))
	}

	if raw.ReviewsMetaData != nil {
		meta := RatingSummary{Average: raw.ReviewsMetaData.Rating, Count: raw.ReviewsMetaData.Reviews}
		p.ReviewsMetaData = &meta
		p.Rating = meta
	} else {
		p.Rating = Summarize(p.Reviews)
	}

	return p
}

// TransformAll transforms every product in order. Null entries are
// dropped.
func (t *Transformer) TransformAll(raws []*backend.RawProduct) []Product {
	out := make([]Product, 0, len(raws))
	for _, raw := range raws {
		if p := t.Transform(raw); p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func (t *Transformer) review(r backend.RawReview) Review {
	rv := Review{
		ID:      r.ID,
		Name:    AnonymousName,
		Comment: r.Description,
	}
	if r.User != nil && r.User.Username != "" {
		rv.Name = r.User.Username
	}
	if r.Rating != nil {
		rv.Rating = *r.Rating
	}
	switch {
	case r.CreatedOn != "":
		rv.Date = r.CreatedOn
	case r.ModifiedOn != "":
		rv.Date = r.ModifiedOn
	default:
		rv.Date = t.now().UTC().Format(time.RFC3339)
	}
	return rv
}

// DiscountedPrice is round(price - price*pct/100), halves rounded away
// from zero.
func DiscountedPrice(price int64, pct float64) int64 {
	base := decimal.NewFromInt(price)
	off := base.Mul(decimal.NewFromFloat(pct)).Div(hundred)
	return base.Sub(off).Round(0).IntPart()
}

// Summarize computes the mean rating of reviews, 0 when there are none.
func Summarize(reviews []Review) RatingSummary {
	if len(reviews) == 0 {
		return RatingSummary{}
	}
	sum := 0.0
	for _, r := range reviews {
		sum += r.Rating
	}
	return RatingSummary{Average: sum / float64(len(reviews)), Count: len(reviews)}
}

// orderImages drops empty images and pins the first catalog image to the
// front, keeping the relative order of the rest.
func orderImages(images []backend.RawImage, legacy string) []string {
	out := make([]string, 0, len(images))
	pinned := -1
	for _, img := range images {
		if img.Base64 == "" {
			continue
		}
		if img.CatalogImage && pinned < 0 {
			pinned = len(out)
		}
		out = append(out, img.Base64)
	}

	if len(out) == 0 {
		if legacy != "" {
			return []string{legacy}
		}
		return out
	}

	if pinned > 0 {
		primary := out[pinned]
		copy(out[1:pinned+1], out[:pinned])
		out[0] = primary
	}
	return out
}
