package auth

import "context"

type principalKey struct{}

// WithPrincipal returns a context carrying a request-scoped principal,
// as resolved by the identity source for one request.
func WithPrincipal(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, principalKey{}, uid)
}

// PrincipalFromContext returns the request-scoped principal, if any.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(principalKey{}).(string)
	return uid, ok && uid != ""
}

// Principal resolves the effective principal for a call: a
// request-scoped value always wins over the process state, so two
// concurrent requests verified as different users never observe each
// other's identity. The process state remains the source for
// deployments with a single configured principal.
func Principal(ctx context.Context, s *State) (string, bool) {
	if uid, ok := PrincipalFromContext(ctx); ok {
		return uid, true
	}
	if s == nil {
		return "", false
	}
	return s.Current()
}
