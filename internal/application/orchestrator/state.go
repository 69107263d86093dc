package orchestrator

import "github.com/bryanwahyu/research-camera/internal/domain/analysis"

// State is the orchestrator's current phase. The set of implementations is
// closed: Idle, Configuring, Analyzing, Succeeded and Failed.
type State interface {
	isState()
	String() string
}

// Idle: nothing staged, nothing displayed.
type Idle struct{}

// Configuring: at least one image staged, no result displayed.
type Configuring struct{}

// Analyzing: one pipeline call is outstanding.
type Analyzing struct{}

// Succeeded holds the displayed result. Saved is true once a history write
// for it was confirmed, or when it was loaded from history.
type Succeeded struct {
	Result analysis.Result
	Saved  bool
}

// Failed holds the message shown to the user.
type Failed struct {
	Kind    FailureKind
	Message string
}

type FailureKind int

const (
	FailureGeneric FailureKind = iota
	FailureQuota
)

// QuotaMessage is shown for FailureQuota.
const QuotaMessage = "This interactive demo has reached its daily safety limit for AI processing. Please try again later or tomorrow."

const genericMessage = "An unexpected error occurred"

func (Idle) isState()        {}
func (Configuring) isState() {}
func (Analyzing) isState()   {}
func (Succeeded) isState()   {}
func (Failed) isState()      {}

func (Idle) String() string        { return "idle" }
func (Configuring) String() string { return "configuring" }
func (Analyzing) String() string   { return "analyzing" }
func (s Succeeded) String() string {
	if s.Saved {
		return "succeeded(saved)"
	}
	return "succeeded(unsaved)"
}
func (f Failed) String() string {
	if f.Kind == FailureQuota {
		return "failed(quota)"
	}
	return "failed"
}
