package mongodb

const (
	SessionsCollection = "live_sessions" // Session aggregates, one document per session
)
