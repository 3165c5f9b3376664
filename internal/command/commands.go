package command

// Cart Commands. Email identifies the authenticated user.
type AddToCart struct {
	Email     string `json:"-"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// UpdateCartItem sets the quantity of an item; zero removes it.
type UpdateCartItem struct {
	Email     string `json:"-"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCart struct {
	Email     string `json:"-"`
	ProductID string `json:"productId"`
}

type Checkout struct {
	Email string `json:"-"`
}
