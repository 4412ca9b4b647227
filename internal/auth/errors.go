package auth

import "net/http"

// Kind classifies a failed flow step. Each kind maps to one HTTP status.
type Kind string

const (
	KindInvalidState        Kind = "invalid_state"
	KindMissingCode         Kind = "missing_code"
	KindAuthorizationDenied Kind = "authorization_denied"
	KindProviderExchange    Kind = "provider_exchange"
	KindMissingIdentity     Kind = "missing_identity"
	KindIdentityBridge      Kind = "identity_bridge"
	KindDomainNotAllowed    Kind = "domain_not_allowed"
	KindMemberNotFound      Kind = "member_not_found"
	KindRoleGrant           Kind = "role_grant"
	KindInternal            Kind = "internal"
)

// Status returns the HTTP status code reported to the client.
func (k Kind) Status() int {
	switch k {
	case KindInvalidState, KindMissingCode, KindAuthorizationDenied, KindMissingIdentity:
		return http.StatusBadRequest
	case KindIdentityBridge:
		return http.StatusUnauthorized
	case KindDomainNotAllowed:
		return http.StatusForbidden
	case KindMemberNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a flow failure. Message is safe to show to the client;
// Err carries the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError builds a flow failure of the given kind.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

var (
	ErrInvalidState        = &Error{Kind: KindInvalidState, Message: "Invalid state parameter"}
	ErrMissingCode         = &Error{Kind: KindMissingCode, Message: "No code provided"}
	ErrAuthorizationDenied = &Error{Kind: KindAuthorizationDenied, Message: "Authorization was denied"}
	ErrProviderExchange    = &Error{Kind: KindProviderExchange, Message: "Provider request failed"}
	ErrMissingIdentity     = &Error{Kind: KindMissingIdentity, Message: "Missing identity"}
	ErrIdentityBridge      = &Error{Kind: KindIdentityBridge, Message: "Discord identity missing or expired"}
	ErrDomainNotAllowed    = &Error{Kind: KindDomainNotAllowed, Message: "Email domain not allowed"}
	ErrMemberNotFound      = &Error{Kind: KindMemberNotFound, Message: "User not found"}
	ErrRoleGrant           = &Error{Kind: KindRoleGrant, Message: "Failed to assign role"}
	ErrInternal            = &Error{Kind: KindInternal, Message: "Internal server error"}
)
