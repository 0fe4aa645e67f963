package event

import "time"

// Domain events are immutable notifications describing committed state
// changes. Each kind maps to its own topic so every interested consumer
// receives every event of that kind.

type UserCreated struct {
	UserID    int64     `json:"userId"`
	UserName  string    `json:"userName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserUpdated struct {
	UserID      int64     `json:"userId"`
	UserName    string    `json:"userName,omitempty"`
	Email       string    `json:"email,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type UserDeleted struct {
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	DeletedAt time.Time `json:"deletedAt"`
}

type ProductCreated struct {
	ProductID   int64     `json:"productId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Category    string    `json:"category,omitempty"`
	Rating      float64   `json:"rating"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ProductUpdated struct {
	ProductID   int64     `json:"productId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Category    string    `json:"category,omitempty"`
	Rating      float64   `json:"rating"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ProductDeleted struct {
	ProductID int64     `json:"productId"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	DeletedAt time.Time `json:"deletedAt"`
}

// OrderItem is one line of an order lifecycle event.
type OrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type OrderCreated struct {
	OrderID int64       `json:"orderId"`
	UserID  int64       `json:"userId"`
	Items   []OrderItem `json:"items"`
}

type OrderDeleted struct {
	OrderID int64       `json:"orderId"`
	Status  string      `json:"status"`
	Items   []OrderItem `json:"items"`
}
