package pipeline

// OutcomeKind enumerates the terminal results of a submission attempt. The
// presenter and reset rules branch on this value, never on display text.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeValidationFailure
	OutcomeUploadFailure
	OutcomeWebhookFailure
	OutcomeServerRejected
	OutcomePermissionDenied
	// OutcomeInternalError covers programming-invariant violations such as a
	// submission reaching the payload builder without a form selected.
	OutcomeInternalError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeValidationFailure:
		return "validation-failure"
	case OutcomeUploadFailure:
		return "upload-failure"
	case OutcomeWebhookFailure:
		return "webhook-failure"
	case OutcomeServerRejected:
		return "server-rejected"
	case OutcomePermissionDenied:
		return "permission-denied"
	case OutcomeInternalError:
		return "internal-error"
	default:
		return "unknown"
	}
}

// Outcome is the heading/message pair handed to the presenter together with
// its typed kind.
type Outcome struct {
	Kind    OutcomeKind
	Heading string
	Message string
}

// Presenter shows terminal outcomes to the user. The modal/alert rendering
// itself lives outside this codebase.
type Presenter interface {
	// Present shows one outcome.
	Present(Outcome)
	// DismissOverlay closes any covering panel (for instance the Rücknahme
	// sheet) before a delayed confirmation is presented.
	DismissOverlay()
}

// NopPresenter discards outcomes. Useful when the caller only consumes the
// returned Outcome value.
type NopPresenter struct{}

func (NopPresenter) Present(Outcome) {}

func (NopPresenter) DismissOverlay() {}
