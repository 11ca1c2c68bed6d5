package backend

// Raw records as served by the REST backend. Optional fields are pointers
// or slices so that absence can be told apart from zero values; nothing
// here is shown to a user directly, catalog.Transformer normalizes it.
// Product arrays hold pointers because the backend may send null entries.

type RawProduct struct {
	ID                int64              `json:"id"`
	Name              string             `json:"name"`
	Description       string             `json:"description,omitempty"`
	About             string             `json:"about,omitempty"`
	Price             int64              `json:"price"`
	Discounts         *RawDiscount       `json:"discounts,omitempty"`
	Images            []RawImage         `json:"images,omitempty"`
	Image             string             `json:"image,omitempty"`
	Benefits          []RawBenefit       `json:"benefits,omitempty"`
	ProductLovePoints []RawLovePoint     `json:"productLovePoints,omitempty"`
	ProductDetails    []RawProductDetail `json:"productDetails,omitempty"`
	Reviews           []RawReview        `json:"reviews,omitempty"`
	ReviewsMetaData   *RawReviewsMeta    `json:"reviewsMetaData,omitempty"`
	CreatedOn         string             `json:"createdOn,omitempty"`
	ModifiedOn        string             `json:"modifiedOn,omitempty"`
}

type RawDiscount struct {
	Enable   bool    `json:"enable"`
	Discount float64 `json:"discount"`
}

type RawImage struct {
	ID           int64  `json:"id,omitempty"`
	Base64       string `json:"base64"`
	CatalogImage bool   `json:"catalogImage"`
}

type RawBenefit struct {
	ID          int64  `json:"id"`
	Logo        string `json:"logo,omitempty"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
}

type RawLovePoint struct {
	ID    int64  `json:"id,omitempty"`
	Value string `json:"value,omitempty"`
}

type RawProductDetail struct {
	ID        int64         `json:"id"`
	Value     string        `json:"value,omitempty"`
	Dimension *RawDimension `json:"dimension,omitempty"`
}

type RawDimension struct {
	Name string `json:"name,omitempty"`
	Unit string `json:"unit,omitempty"`
}

type RawReview struct {
	ID          int64          `json:"id"`
	User        *RawReviewUser `json:"user,omitempty"`
	Rating      *float64       `json:"rating,omitempty"`
	Description string         `json:"description,omitempty"`
	CreatedOn   string         `json:"createdOn,omitempty"`
	ModifiedOn  string         `json:"modifiedOn,omitempty"`
}

type RawReviewUser struct {
	Username string `json:"username,omitempty"`
}

type RawReviewsMeta struct {
	Rating  float64 `json:"rating"`
	Reviews int     `json:"reviews"`
}

// User is the account record returned by signup and login.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Pincode     string `json:"pincode"`
}

type CartItemRecord struct {
	ID        int64 `json:"id"`
	UserID    int64 `json:"userId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// CartResponse is the authoritative cart together with the catalog
// snapshot the server resolved it against. The backend spells the
// snapshot field "ceremics".
type CartResponse struct {
	Cart     []CartItemRecord `json:"cart"`
	Ceremics []*RawProduct    `json:"ceremics"`
}

type OrderBookRecord struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	CreatedOn string `json:"createdOn,omitempty"`
}

type OrderBookResponse struct {
	OrderBooks []OrderBookRecord `json:"orderBooks"`
	Ceremics   []*RawProduct     `json:"ceremics"`
}

// OrderConfirmation is whatever the order endpoint answered. An empty or
// unparseable 2xx body still counts as success.
type OrderConfirmation struct {
	Success bool           `json:"success"`
	Body    map[string]any `json:"-"`
}

type LogEntry struct {
	IP         string `json:"ip"`
	UserID     int64  `json:"userId"`
	PageName   string `json:"pageName"`
	Action     string `json:"action"`
	ElementTag string `json:"elementTag"`
}
