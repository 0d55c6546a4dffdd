package auth

import "context"

type actorContextKey struct{}
type subjectContextKey struct{}

// ContextWithActor attaches the authorized actor to the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, &actor)
}

// ActorFromContext extracts the authorized actor from the context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	v, ok := ctx.Value(actorContextKey{}).(*Actor)
	if !ok || v == nil {
		return Actor{}, false
	}
	return *v, true
}

// ContextWithSubject stores the employee id taken from a verified token.
func ContextWithSubject(ctx context.Context, employeeID string) context.Context {
	if employeeID == "" {
		return ctx
	}
	return context.WithValue(ctx, subjectContextKey{}, employeeID)
}

// SubjectFromContext returns the token subject if one was attached.
func SubjectFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(subjectContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
