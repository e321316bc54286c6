package constants

// Identity constants
const (
	// DefaultIdentityHeader carries the caller's email when no auth layer
	// sits in front of the API
	DefaultIdentityHeader = "X-User-Email"
)

// Recommendation constants
const (
	// DefaultRandomListSize is how many users a random suggestion list holds
	DefaultRandomListSize = 3
	// DefaultRecommendConcurrency bounds the per-candidate count lookups
	DefaultRecommendConcurrency = 8
)

// Notification constants
const (
	// NotificationStreamMaxLen caps stream based notification backends
	NotificationStreamMaxLen = 100_000
	// NotificationMaxAttempts is how often a retryable publish is tried
	NotificationMaxAttempts = 3
)
