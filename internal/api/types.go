package api

type CreateBookingRequest struct {
	ParentName   string `json:"parentName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	FacilitySlug string `json:"facilitySlug"`
	Date         string `json:"date"` // YYYY-MM-DD
	TimeWindow   string `json:"timeWindow"`
	Message      string `json:"message"`
}

type CreateBookingResponse struct {
	Success   bool   `json:"success"`
	BookingID string `json:"bookingId"`
}

type CancelBookingRequest struct {
	BookingID string `json:"bookingId"`
}

type CancelBookingResponse struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

type ReminderResponse struct {
	Success bool   `json:"success"`
	Sent    int    `json:"sent"`
	Date    string `json:"date"`
}

type CleanupResponse struct {
	Success bool   `json:"success"`
	Deleted int    `json:"deleted"`
	Date    string `json:"date"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
