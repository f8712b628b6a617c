package api

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/waymaker/tour-booking/internal/jobs"
)

// authorizeCron validates the shared-secret bearer token on cron requests.
// The comparison runs in constant time; a length mismatch short-circuits,
// which is safe because the length of the header is observable anyway.
// Returns false after writing the error response when the request must not
// proceed.
func authorizeCron(w http.ResponseWriter, r *http.Request, secret string) bool {
	if secret == "" {
		log.Printf("cron endpoint hit but CRON_SECRET is not configured")
		writeError(w, http.StatusInternalServerError, "server_configuration_error", "cron secret is not configured")
		return false
	}

	header := r.Header.Get("Authorization")
	expected := "Bearer " + secret

	if len(header) != len(expected) ||
		subtle.ConstantTimeCompare([]byte(header), []byte(expected)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid cron credentials")
		return false
	}

	return true
}

func reminderHandler(runner *jobs.Runner, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authorizeCron(w, r, secret) {
			return
		}

		res, err := runner.RunReminder(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, ReminderResponse{Success: true, Sent: res.Sent, Date: res.Date})
	}
}

func cleanupHandler(runner *jobs.Runner, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authorizeCron(w, r, secret) {
			return
		}

		res, err := runner.RunCleanup(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, CleanupResponse{Success: true, Deleted: res.Deleted, Date: res.Date})
	}
}
