package types

// CallerIdentity is the sentinel SID value on a ResolvedAction that
// targets the invoking identity's own location rather than an
// enumerated profile.
const CallerIdentity = ""

// ResolvedAction is one concrete application of a logical target: the
// physical path (or registry path) to touch and the identity it
// belongs to. Actions are created fresh inside one fan-out call and
// discarded after application.
type ResolvedAction struct {
	// Path is the fully resolved physical file path or registry path.
	Path string

	// SID identifies the profile this action applies to, or
	// CallerIdentity for the invoking user's own location.
	SID string

	// RequiresElevation is true when Path falls under a protected
	// machine location.
	RequiresElevation bool
}

// SkipReason explains a non-error, non-applied outcome.
type SkipReason string

const (
	// SkipNone means the action was attempted
	SkipNone SkipReason = ""

	// SkipNoProfiles means a per-user operation had no audience: the
	// enumerator found zero real profiles. Not an error.
	SkipNoProfiles SkipReason = "no_profiles_found"

	// SkipNotApplicable means the operation does not apply in the
	// current execution context
	SkipNotApplicable SkipReason = "not_applicable"
)

// ErrorKind classifies a failed application.
type ErrorKind string

const (
	ErrKindNone         ErrorKind = ""
	ErrKindAccessDenied ErrorKind = "access_denied"
	ErrKindNotFound     ErrorKind = "not_found"
	ErrKindIO           ErrorKind = "io_error"
)

// OperationResult is the outcome of one ResolvedAction.
type OperationResult struct {
	Action    ResolvedAction
	Succeeded bool
	Skip      SkipReason
	ErrKind   ErrorKind
	Err       error
}

// Failed reports whether this result is a hard failure (not a skip).
func (r OperationResult) Failed() bool {
	return !r.Succeeded && r.Skip == SkipNone
}
