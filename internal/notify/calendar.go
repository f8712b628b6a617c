package notify

import (
	"net/url"
	"strings"
)

// CalendarEvent describes a tour for a Google Calendar "add event" link.
type CalendarEvent struct {
	Title       string
	Description string
	Location    string
	Date        string // YYYY-MM-DD
	StartTime   string // HHMMSS, local to Timezone
	EndTime     string // HHMMSS, local to Timezone
	Timezone    string // IANA zone; rendered as floating time with ctz
}

// GoogleCalendarLink renders a calendar.google.com render URL for the event.
// Times are emitted without a Z suffix and the zone is passed via ctz, so the
// calendar shows the tour at the facility's local time.
func GoogleCalendarLink(ev CalendarEvent) string {
	compact := strings.ReplaceAll(ev.Date, "-", "")
	dates := compact + "T" + ev.StartTime + "/" + compact + "T" + ev.EndTime

	u, _ := url.Parse("https://calendar.google.com/calendar/render")
	q := u.Query()
	q.Set("action", "TEMPLATE")
	q.Set("text", ev.Title)
	q.Set("details", ev.Description)
	q.Set("location", ev.Location)
	q.Set("dates", dates)
	if ev.Timezone != "" {
		q.Set("ctz", ev.Timezone)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
