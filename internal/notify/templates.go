package notify

import (
	"fmt"
)

// Tour carries the booking fields the mail templates need. A plain struct
// keeps this package independent of the booking domain types.
type Tour struct {
	BookingID    string
	ParentName   string
	ParentEmail  string
	FacilityName string
	FacilitySlug string
	Date         string
	TimeWindow   string
	Message      string
}

// ConfirmationMessage is sent to the parent after a booking commits. It
// carries an add-to-calendar link and a cancellation link.
func ConfirmationMessage(t Tour, baseURL, timezone string) Message {
	cancelLink := fmt.Sprintf("%s/booking/cancel?id=%s&date=%s", baseURL, t.BookingID, t.Date)
	calendarLink := GoogleCalendarLink(CalendarEvent{
		Title:       "Daycare Tour: " + t.FacilityName,
		Description: "Tour at " + t.FacilityName,
		Location:    t.FacilityName,
		Date:        t.Date,
		StartTime:   "100000",
		EndTime:     "110000",
		Timezone:    timezone,
	})

	text := fmt.Sprintf(
		"Dear %s,\n\nYour tour at %s is confirmed.\n\nDate: %s\nTime: %s\n\nAdd to calendar: %s\n\nNeed to cancel? %s\n",
		t.ParentName, t.FacilityName, t.Date, t.TimeWindow, calendarLink, cancelLink,
	)
	html := fmt.Sprintf(
		`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #0F3B4C;">Tour Confirmed</h2>
  <p>Dear %s,</p>
  <p>Your tour at <strong>%s</strong> is confirmed.</p>
  <div style="background: #f5f5f5; padding: 15px; border-radius: 8px; margin: 20px 0;">
    <p><strong>Date:</strong> %s</p>
    <p><strong>Time:</strong> %s</p>
  </div>
  <p><a href="%s" target="_blank">Add to Google Calendar</a></p>
  <p style="font-size: 14px; color: #666;">Need to cancel? <a href="%s" style="color: #dc2626;">Cancel Booking</a></p>
</div>`,
		t.ParentName, t.FacilityName, t.Date, t.TimeWindow, calendarLink, cancelLink,
	)

	return Message{
		To:      t.ParentEmail,
		Subject: "Your Daycare Tour is Confirmed - " + t.FacilityName,
		Text:    text,
		HTML:    html,
	}
}

// FacilityBookingMessage notifies the facility inbox of a new booking.
func FacilityBookingMessage(t Tour, to string) Message {
	text := fmt.Sprintf(
		"New tour booking.\n\nParent: %s\nEmail: %s\nDaycare: %s\nDate: %s\nTime: %s\n\nMessage:\n%s\n",
		t.ParentName, t.ParentEmail, t.FacilityName, t.Date, t.TimeWindow, t.Message,
	)
	html := fmt.Sprintf(
		`<div style="font-family: sans-serif;">
  <h2 style="color: #0F3B4C;">New Tour Booking</h2>
  <p><strong>Parent:</strong> %s</p>
  <p><strong>Email:</strong> %s</p>
  <p><strong>Daycare:</strong> %s</p>
  <p><strong>Date:</strong> %s</p>
  <p><strong>Time:</strong> %s</p>
  <p style="background: #f5f5f5; padding: 15px; border-left: 4px solid #0F3B4C; white-space: pre-wrap;">%s</p>
</div>`,
		t.ParentName, t.ParentEmail, t.FacilityName, t.Date, t.TimeWindow, t.Message,
	)

	return Message{
		To:      to,
		Subject: fmt.Sprintf("New Tour Booking: %s - %s", t.ParentName, t.Date),
		Text:    text,
		HTML:    html,
	}
}

// FacilityCancellationMessage notifies the facility that a parent cancelled.
func FacilityCancellationMessage(t Tour, to string) Message {
	text := fmt.Sprintf(
		"The following tour has been cancelled by the parent.\n\nParent: %s\nDaycare: %s\nDate: %s\nTime: %s\n",
		t.ParentName, t.FacilityName, t.Date, t.TimeWindow,
	)
	html := fmt.Sprintf(
		`<div style="font-family: sans-serif;">
  <h2 style="color: #d9534f;">Booking Cancelled</h2>
  <p>The following tour has been cancelled by the parent:</p>
  <p><strong>Parent:</strong> %s</p>
  <p><strong>Daycare:</strong> %s</p>
  <p><strong>Date:</strong> %s</p>
  <p><strong>Time:</strong> %s</p>
</div>`,
		t.ParentName, t.FacilityName, t.Date, t.TimeWindow,
	)

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Booking Cancelled: %s - %s", t.ParentName, t.Date),
		Text:    text,
		HTML:    html,
	}
}

// ReminderMessage is sent to the parent the day before the tour.
func ReminderMessage(t Tour) Message {
	text := fmt.Sprintf(
		"Dear %s,\n\nThis is a friendly reminder about your daycare tour tomorrow.\n\nDaycare: %s\nDate: %s\nTime: %s\n\nWe look forward to seeing you!\n",
		t.ParentName, t.FacilityName, t.Date, t.TimeWindow,
	)
	html := fmt.Sprintf(
		`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #0F3B4C;">Tour Reminder</h2>
  <p>Dear %s,</p>
  <p>This is a friendly reminder about your daycare tour tomorrow.</p>
  <div style="background: #f5f5f5; padding: 15px; border-radius: 8px; margin: 20px 0;">
    <p><strong>Daycare:</strong> %s</p>
    <p><strong>Date:</strong> %s</p>
    <p><strong>Time:</strong> %s</p>
  </div>
  <p>We look forward to seeing you!</p>
</div>`,
		t.ParentName, t.FacilityName, t.Date, t.TimeWindow,
	)

	return Message{
		To:      t.ParentEmail,
		Subject: "Reminder: Your Daycare Tour Tomorrow at " + t.FacilityName,
		Text:    text,
		HTML:    html,
	}
}
