package types

import "time"

// Supported user roles.
const (
	RoleBrand   = "brand"
	RolePicker  = "picker"
	RoleShopper = "shopper"
	RoleAdmin   = "admin"
)

// Roles lists every role a user can register with.
var Roles = []string{RoleBrand, RolePicker, RoleShopper, RoleAdmin}

// User represents an account in the marketplace.
// It contains identity, role, and the optional brand profile.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. It is unique across all users.
	Email string `json:"email" db:"email"`

	// Role is fixed at creation and is one of Roles.
	Role string `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Profile is the brand profile, attached once after registration.
	Profile *BrandProfile `json:"profile,omitempty" db:"profile"`

	// Services maps an external OAuth provider name to the user's id
	// at that provider (e.g., "google" -> "1234").
	Services map[string]string `json:"-" db:"services"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// IsBrand reports whether the user acts as a brand.
func (u User) IsBrand() bool {
	return u.Role == RoleBrand
}

// BrandProfile holds the public details a brand attaches to its account.
type BrandProfile struct {
	Name      string `json:"name" bson:"name"`
	Country   string `json:"country" bson:"country"`
	Website   string `json:"website" bson:"website"`
	Instagram string `json:"instagram" bson:"instagram"`

	// Code is the international dialing code of Phone.
	Code  int    `json:"code" bson:"code"`
	Phone string `json:"phone" bson:"phone"`
}
