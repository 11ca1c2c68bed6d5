package order

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/ceremic-storefront/internal/catalog"
	"github.com/example/ceremic-storefront/internal/session"
)

// Line is one ordered product.
type Line struct {
	OrderID   int64
	Product   catalog.Product
	Quantity  int
	OrderedAt time.Time
}

// Total is the line price at the product's current discounted price.
func (l Line) Total() decimal.Decimal {
	return decimal.NewFromInt(l.Product.DiscountedPrice).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// DayGroup collects the lines ordered on one calendar day.
type DayGroup struct {
	Day        time.Time
	Lines      []Line
	TotalItems int
	Total      decimal.Decimal
}

// Label formats the day the way the orders page heads each group.
func (g DayGroup) Label() string {
	return g.Day.Format("Monday, January 2, 2006")
}

// History groups the user's order book by day, newest day first. Lines
// whose product is missing from the snapshot are dropped and lines with
// no usable date count as ordered now.
type History struct {
	backend     Backend
	sessions    session.Provider
	transformer *catalog.Transformer
	now         func() time.Time
	loc         *time.Location
}

func NewHistory(b Backend, sessions session.Provider, transformer *catalog.Transformer, now func() time.Time, loc *time.Location) *History {
	if transformer == nil {
		transformer = catalog.NewTransformer(now)
	}
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &History{backend: b, sessions: sessions, transformer: transformer, now: now, loc: loc}
}

func (h *History) Load(ctx context.Context) ([]DayGroup, error) {
	s := session.Current(ctx, h.sessions)
	if s == nil {
		return nil, ErrNotLoggedIn
	}

	resp, err := h.backend.LoadOrderBook(ctx, s.User())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHistoryLoadFailed, err)
	}

	products := catalog.Index(h.transformer.TransformAll(resp.Ceremics))
	lines := make([]Line, 0, len(resp.OrderBooks))
	for _, rec := range resp.OrderBooks {
		p, ok := products[rec.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, Line{
			OrderID:   rec.ID,
			Product:   p,
			Quantity:  rec.Quantity,
			OrderedAt: h.parseTime(rec.CreatedOn),
		})
	}
	return GroupByDay(lines, h.loc), nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (h *History) parseTime(s string) time.Time {
	if s == "" {
		return h.now()
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, h.loc); err == nil {
			return t
		}
	}
	return h.now()
}

// GroupByDay buckets lines by calendar day in loc, newest first. Lines
// keep their relative order within a day.
func GroupByDay(lines []Line, loc *time.Location) []DayGroup {
	byDay := make(map[time.Time]*DayGroup)
	for _, l := range lines {
		t := l.OrderedAt.In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		g, ok := byDay[day]
		if !ok {
			g = &DayGroup{Day: day, Total: decimal.Zero}
			byDay[day] = g
		}
		g.Lines = append(g.Lines, l)
		g.TotalItems += l.Quantity
		g.Total = g.Total.Add(l.Total())
	}

	groups := make([]DayGroup, 0, len(byDay))
	for _, g := range byDay {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Day.After(groups[j].Day) })
	return groups
}
