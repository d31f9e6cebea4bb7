package util

// gin.Context 中的键
const (
	UserKey      = "user"
	RequestIDKey = "request_id"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)
