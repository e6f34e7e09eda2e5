package models

const (
	// DefaultSessionTTL session lifetime
	DefaultSessionTTL = 24 * 60 * 60 // 24h in seconds
	DefaultTimezone   = "Europe/Vienna"

	// DefaultOpeningHour first bookable start hour of the grid
	DefaultOpeningHour = 8

	// DefaultClosingHour last bookable start hour of the grid
	DefaultClosingHour = 20

	// DefaultMaxDailyBookingHours quota used when the backend does not send one
	DefaultMaxDailyBookingHours = 2

	// DefaultCourtCount number of courts assumed when the backend cannot list them
	DefaultCourtCount = 5

	// RateLimitMessages bot updates allowed per window
	RateLimitMessages = 20

	// RateLimitWindow bot rate limit window
	RateLimitWindow = 60 // seconds

	// LoginAttempts login attempts allowed per window
	LoginAttempts = 10

	// CourtsCacheTTL lifetime of the cached court list
	CourtsCacheTTL = 30 * 60 // seconds
)
