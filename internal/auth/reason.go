package auth

// Reason is the classified cause of a rejected session.
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonInsufficientTier
	ReasonNoSubscription
)

// Error codes sent by the service.
const (
	codeInsufficientTier = "insufficient_tier"
	codeNotAPatron       = "not_a_patron"
	unknownErrorCode     = "unknown_error"
)

// Classify maps a service error code onto a Reason.
func Classify(code string) Reason {
	switch code {
	case codeInsufficientTier:
		return ReasonInsufficientTier
	case codeNotAPatron:
		return ReasonNoSubscription
	default:
		return ReasonUnknown
	}
}

// String returns the string representation of the reason
func (r Reason) String() string {
	switch r {
	case ReasonInsufficientTier:
		return "insufficient_tier"
	case ReasonNoSubscription:
		return "no_subscription"
	default:
		return "unknown"
	}
}

// Message is a short description suitable for a status line. It is
// empty for ReasonUnknown; callers show the raw code instead.
func (r Reason) Message() string {
	switch r {
	case ReasonInsufficientTier:
		return "Insufficient Patreon tier (requires $10+)"
	case ReasonNoSubscription:
		return "Active Patreon subscription required"
	default:
		return ""
	}
}

// Hint returns a URL where the user can resolve the problem, or "".
func (r Reason) Hint() string {
	switch r {
	case ReasonInsufficientTier:
		return "https://www.patreon.com/join/poiyomi/checkout?rid=3426248"
	case ReasonNoSubscription:
		return "https://www.patreon.com/poiyomi"
	default:
		return ""
	}
}
