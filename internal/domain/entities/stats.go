package entities

// ProviderStats aggregates a provider's track record
type ProviderStats struct {
	ProviderID        string  `json:"provider_id"`
	TotalBookings     int     `json:"total_bookings"`
	CompletedBookings int     `json:"completed_bookings"`
	AverageRating     float64 `json:"average_rating"`
	TotalReviews      int     `json:"total_reviews"`
	TotalEarnings     int64   `json:"total_earnings"`
	ResponseRate      float64 `json:"response_rate"`
}

// CustomerStats aggregates a customer's activity
type CustomerStats struct {
	CustomerID        string `json:"customer_id"`
	TotalBookings     int    `json:"total_bookings"`
	CompletedBookings int    `json:"completed_bookings"`
	TotalSpent        int64  `json:"total_spent"`
	ReviewsGiven      int    `json:"reviews_given"`
}
