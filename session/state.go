package session

// State is a step of the federated login flow.
type State int

const (
	Idle State = iota
	AwaitingProvider
	Provisioning
	AwaitingFallbackLogin
	Authenticated
	Failed
)

var stateNames = [...]string{
	Idle:                  "idle",
	AwaitingProvider:      "awaiting_provider",
	Provisioning:          "provisioning",
	AwaitingFallbackLogin: "awaiting_fallback_login",
	Authenticated:         "authenticated",
	Failed:                "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// SessionLostPolicy decides what the bridge does when the provider session
// ends on its own.
type SessionLostPolicy string

const (
	// PolicyIgnore records the loss and keeps the backend session.
	PolicyIgnore SessionLostPolicy = "ignore"
	// PolicyInvalidate also clears the stored backend token.
	PolicyInvalidate SessionLostPolicy = "invalidate"
)
