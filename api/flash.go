package api

import (
	"encoding/base64"
	"net/http"
)

const flashCookie = "im_flash"

const (
	noticeLoginRequired = "Please log in."
	noticeAdminRequired = "Admin access required."
	noticeUserNotFound  = "User not found."
	noticeUnauthorized  = "Unauthorized."
	noticeInvalidStatus = "Invalid status."
	noticeCreated       = "Intervention created."
)

// setFlash stores a one-shot notice for the next page view.
func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(msg)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending notice, if any, and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	b, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	return string(b)
}
