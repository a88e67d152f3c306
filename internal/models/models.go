package models

import "time"

// Role is a user role. Roles form a total order used for permission checks.
type Role string

const (
	RoleUser      Role = "user"
	RoleLibrarian Role = "librarian"
	RoleAdmin     Role = "admin"
)

// roleRanks is the explicit role hierarchy: USER < LIBRARIAN < ADMIN.
var roleRanks = map[Role]int{
	RoleUser:      1,
	RoleLibrarian: 2,
	RoleAdmin:     3,
}

// Rank returns the position of the role in the hierarchy. Unknown roles
// rank below every valid role.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Order statuses. Every order starts as PENDING.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// User represents an account holder
type User struct {
	ID               int64     `db:"id" json:"id"`
	Email            string    `db:"email" json:"email"`
	PasswordHash     string    `db:"password_hash" json:"-"`
	FirstName        string    `db:"first_name" json:"first_name"`
	LastName         string    `db:"last_name" json:"last_name"`
	Address          string    `db:"address" json:"address,omitempty"`
	Phone            string    `db:"phone" json:"phone,omitempty"`
	Role             Role      `db:"role" json:"role"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	RegistrationDate time.Time `db:"registration_date" json:"registration_date"`
}

// Author represents a publication author
type Author struct {
	ID       int64  `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Country  string `db:"country" json:"country,omitempty"`
	Bio      string `db:"bio" json:"bio,omitempty"`
}

// Genre represents a publication genre
type Genre struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
}

// Publisher represents a publishing house
type Publisher struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	ContactEmail string `db:"contact_email" json:"contact_email,omitempty"`
}

// Publication represents a catalog entry. Price is in minor currency units.
// StockQuantity never goes negative; it is only decremented inside the
// checkout transaction or changed by administrative edits.
type Publication struct {
	ID              int64     `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description,omitempty"`
	ISBN            string    `db:"isbn" json:"isbn,omitempty"`
	PublicationYear int       `db:"publication_year" json:"publication_year,omitempty"`
	Price           int64     `db:"price" json:"price"`
	StockQuantity   int       `db:"stock_quantity" json:"stock_quantity"`
	Pages           int       `db:"pages" json:"pages,omitempty"`
	Language        string    `db:"language" json:"language,omitempty"`
	PublisherID     int64     `db:"publisher_id" json:"publisher_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PublicationDetail is a publication with its catalog relations resolved.
type PublicationDetail struct {
	Publication
	Authors       []Author   `json:"authors"`
	Genres        []Genre    `json:"genres"`
	Publisher     *Publisher `json:"publisher,omitempty"`
	AverageRating float64    `json:"average_rating"`
	ReviewCount   int        `json:"review_count"`
}

// Order represents a placed order. Created only by a successful checkout,
// mutated thereafter only by administrative status transitions.
type Order struct {
	ID              int64     `db:"id" json:"id"`
	OrderNumber     string    `db:"order_number" json:"order_number"`
	UserID          int64     `db:"user_id" json:"user_id"`
	TotalAmount     int64     `db:"total_amount" json:"total_amount"`
	Status          string    `db:"status" json:"status"`
	PaymentMethod   string    `db:"payment_method" json:"payment_method,omitempty"`
	ShippingAddress string    `db:"shipping_address" json:"shipping_address,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// OrderLine represents one line of an order. UnitPrice is the cart snapshot
// captured at add-time, immutable even if the publication price changes later.
type OrderLine struct {
	ID            int64 `db:"id" json:"id"`
	OrderID       int64 `db:"order_id" json:"order_id"`
	PublicationID int64 `db:"publication_id" json:"publication_id"`
	Quantity      int   `db:"quantity" json:"quantity"`
	UnitPrice     int64 `db:"unit_price" json:"unit_price"`
}

// Review represents a user's review of a publication. One review per
// (user, publication) pair.
type Review struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	PublicationID int64     `db:"publication_id" json:"publication_id"`
	Rating        int       `db:"rating" json:"rating"`
	Comment       string    `db:"comment" json:"comment,omitempty"`
	IsApproved    bool      `db:"is_approved" json:"is_approved"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ProcessedEvent for worker idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
