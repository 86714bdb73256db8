package auth

import (
	"context"

	"github.com/mind-engage/mindengage-grading/internal/rbac"
)

// Principal is the caller a request acts for.
type Principal struct {
	Subject string
	Role    string
}

type subjectKey struct{}

// WithPrincipal stores the subject and hands the role to rbac.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, subjectKey{}, p.Subject)
	return rbac.WithRole(ctx, p.Role)
}

func PrincipalFromContext(ctx context.Context) Principal {
	return Principal{Subject: SubjectFromContext(ctx), Role: rbac.RoleFromContext(ctx)}
}

func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}
