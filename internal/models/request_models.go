package models

// RegisterRequest represents the request body for email/password registration.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for email/password sign-in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ProviderLoginRequest carries a federated provider credential (e.g. a Google ID token).
type ProviderLoginRequest struct {
	ProviderID string `json:"providerId,omitempty"` // Defaults to "google.com"
	IDToken    string `json:"idToken" binding:"required"`
}

// CreateGameRequest represents the request body for scheduling a game.
// Date is YYYY-MM-DD, Time is HH:MM.
type CreateGameRequest struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Venue string `json:"venue"`
}

// PayGameRequest settles the caller's selected game.
type PayGameRequest struct {
	Amount float64 `json:"amount"`
	Member string  `json:"member"`
}
