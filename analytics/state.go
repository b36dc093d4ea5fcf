package analytics

import "errors"

// GenericErrorMessage is shown for every failure other than a missing login.
const GenericErrorMessage = "Failed to load data"

// StateKind enumerates the mutually exclusive dashboard states.
type StateKind int

const (
	StateLoading StateKind = iota
	StateUnauthenticated
	StateError
	StateLoaded
)

func (k StateKind) String() string {
	switch k {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateError:
		return "error"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// ViewState is the dashboard's state for one mount. Message is set only for
// StateError and Rows only for StateLoaded.
type ViewState struct {
	Kind    StateKind
	Message string
	Rows    []Row
}

// Loading is the state of a mount whose fetch has not resolved yet.
func Loading() ViewState {
	return ViewState{Kind: StateLoading}
}

// Resolve maps the outcome of a fetch to its terminal state.
func Resolve(rows []Row, err error) ViewState {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return ViewState{Kind: StateUnauthenticated}
	case err != nil:
		return ViewState{Kind: StateError, Message: GenericErrorMessage}
	}
	if rows == nil {
		rows = []Row{}
	}
	return ViewState{Kind: StateLoaded, Rows: rows}
}
