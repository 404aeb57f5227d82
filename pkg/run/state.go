package run

// State is the run-level lifecycle state. Transitions are strictly
// sequential and fail-fast: a hard failure in any step moves straight
// to StateFailed and later states are never entered.
type State string

const (
	StateIdle             State = "idle"
	StateInstalling       State = "installing_or_uninstalling"
	StateApplyingFiles    State = "applying_files"
	StateApplyingRegistry State = "applying_registry"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)

// Terminal reports whether the state is one of the two end states.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
