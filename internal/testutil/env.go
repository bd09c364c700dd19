package testutil

// StaticEnvironment is a restore.Environment with fixed answers.
type StaticEnvironment struct {
	Available bool
	Valid     bool
	Event     string
}

// ReadyEnvironment returns an environment where caching is available and the
// event is valid.
func ReadyEnvironment() StaticEnvironment {
	return StaticEnvironment{Available: true, Valid: true, Event: "push"}
}

func (e StaticEnvironment) CacheFeatureAvailable() bool { return e.Available }
func (e StaticEnvironment) ValidEvent() bool            { return e.Valid }
func (e StaticEnvironment) EventName() string           { return e.Event }
