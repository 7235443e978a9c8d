package domain

import (
	"fmt"
	"strings"
	"time"
)

// Session is a tracked login session keyed by the transport session id
type Session struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	SessionID      string    `json:"-" db:"session_id"`
	IP             string    `json:"ip" db:"ip"`
	UserAgent      string    `json:"user_agent" db:"user_agent"`
	DeviceName     string    `json:"device_name" db:"device_name"`
	LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ParseDeviceName derives a "{browser} on {os}" display string from a
// user agent. The substring priority order is part of the public display
// contract and must stay stable, including its known misclassifications
// (Android Chrome reports as "Chrome on Linux", mobile Safari as
// "Safari on macOS").
func ParseDeviceName(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}

	ua := strings.ToLower(userAgent)

	os := "Unknown OS"
	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "iOS"
	}

	browser := "Unknown Browser"
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge/"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome"):
		browser = "Safari"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr/"):
		browser = "Opera"
	}

	return fmt.Sprintf("%s on %s", browser, os)
}
