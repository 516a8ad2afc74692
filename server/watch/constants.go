package watch

const (
	// MinPollIntervalSeconds is the minimum allowed poll interval
	MinPollIntervalSeconds = 5

	// DefaultPollIntervalSeconds matches the dashboard's refresh rate
	DefaultPollIntervalSeconds = 10
)
