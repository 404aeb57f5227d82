package types

// LogicalTarget is a location as authored in the manifest: either a
// fully resolved fixed path/key, or a template carrying one or more
// per-user placeholder tokens. Templates are data; substitution is a
// literal token replace performed by the classifier, never evaluation
// of caller-controlled text.
type LogicalTarget string

func (t LogicalTarget) String() string { return string(t) }
