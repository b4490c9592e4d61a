package navigation

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rosterly/rosterly/pkg/observability"
	"github.com/rosterly/rosterly/pkg/permissions"
	"github.com/rosterly/rosterly/pkg/session"
)

// Outcome is the terminal state of one navigation evaluation.
type Outcome string

const (
	OutcomeAllowed    Outcome = "allowed"
	OutcomeRedirected Outcome = "redirected"
)

// Redirect reason codes. Stable values consumed by UX messaging.
const (
	ReasonAuthRequired            = "auth_required"
	ReasonAlreadyAuthenticated    = "already_authenticated"
	ReasonAdminRequired           = "admin_required"
	ReasonNotMember               = "not_member"
	ReasonInsufficientPermissions = "insufficient_permissions"
	ReasonPermissionCheckFailed   = "permission_check_failed"
)

// Redirect describes where a denied navigation is sent instead.
type Redirect struct {
	To     string // route name
	Params map[string]string
	Query  url.Values
	Reason string
}

// Decision is the guard's verdict for one navigation.
type Decision struct {
	Outcome  Outcome
	Route    *Route
	Redirect *Redirect
}

// Allowed reports whether the navigation may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}

// SessionStore is the subset of pkg/session the guard consumes.
type SessionStore interface {
	Current() *session.Identity
	Restoring() bool
	Restore(ctx context.Context) *session.Identity
}

// PermissionService is the subset of the permission cache the guard consumes.
// The guard never mutates the cache except through EnsureLoaded.
type PermissionService interface {
	EnsureLoaded(ctx context.Context, orgID string, force bool) (bool, error)
	IsAdmin(orgID string) bool
	IsMember(orgID string) bool
	HasPermission(orgID string, p permissions.Permission) bool
	HasAnyPermission(orgID string, perms []permissions.Permission) bool
	HasAllPermissions(orgID string, perms []permissions.Permission) bool
}

// GuardConfig carries optional guard dependencies.
type GuardConfig struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Guard evaluates navigation attempts against the route table, the session
// store and the permission cache.
type Guard struct {
	registry *Registry
	session  SessionStore
	perms    PermissionService
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewGuard creates a navigation guard.
func NewGuard(registry *Registry, sessions SessionStore, perms PermissionService, config *GuardConfig) *Guard {
	if config == nil {
		config = &GuardConfig{}
	}
	logger := config.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Guard{
		registry: registry,
		session:  sessions,
		perms:    perms,
		logger:   logger,
		metrics:  config.Metrics,
	}
}

// Evaluate runs the guard protocol for one navigation target and returns the
// terminal decision. The protocol restarts fresh for every navigation.
func (g *Guard) Evaluate(ctx context.Context, path string) Decision {
	ctx = observability.WithLogger(ctx, g.logger)
	ctx = observability.WithNavigation(ctx, path)
	decision := g.evaluate(ctx, path)

	if g.metrics != nil {
		reason := ""
		if decision.Redirect != nil {
			reason = decision.Redirect.Reason
		}
		g.metrics.GuardDecisionsTotal.WithLabelValues(string(decision.Outcome), reason).Inc()
	}
	return decision
}

func (g *Guard) evaluate(ctx context.Context, path string) Decision {
	match, ok := g.registry.Match(path)
	if !ok {
		// Unknown paths fall through to the not-found view.
		return Decision{Outcome: OutcomeAllowed}
	}
	meta := match.EffectiveMeta()

	// Auth entry points bounce already-authenticated users to home.
	if match.Route.Name == RouteLogin || match.Route.Name == RouteSignup {
		g.restoreIfNeeded(ctx)
		if g.session.Current() != nil {
			return g.redirect(match, RouteHome, nil, nil, ReasonAlreadyAuthenticated)
		}
		return Decision{Outcome: OutcomeAllowed, Route: match.Route}
	}

	// Routes without requirements skip session and permission work entirely.
	if !meta.RequiresAuth && !meta.gated() {
		return Decision{Outcome: OutcomeAllowed, Route: match.Route}
	}

	g.restoreIfNeeded(ctx)
	identity := g.session.Current()

	if meta.RequiresAuth && identity == nil {
		query := url.Values{"redirect": []string{path}}
		return g.redirect(match, RouteLogin, nil, query, ReasonAuthRequired)
	}

	if identity != nil && meta.gated() {
		if decision, done := g.checkOrgRequirements(ctx, match, meta); done {
			return decision
		}
	}

	return Decision{Outcome: OutcomeAllowed, Route: match.Route}
}

// checkOrgRequirements evaluates admin, member and permission requirements
// for the organization extracted from the route's path parameters. The
// second return value is true when the decision is terminal.
func (g *Guard) checkOrgRequirements(ctx context.Context, match *Match, meta RouteMeta) (decision Decision, done bool) {
	logger := observability.FromContext(ctx)

	orgID := match.Params["id"]
	if orgID == "" {
		// Degraded case: the target view enforces its own checks.
		logger.Warn("no organization id on permission-gated route, failing open")
		return Decision{}, false
	}

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", fmt.Sprint(r)).Error("permission check panicked")
			decision = g.redirect(match, RouteHome, nil, nil, ReasonPermissionCheckFailed)
			done = true
		}
	}()

	if _, err := g.perms.EnsureLoaded(ctx, orgID, false); err != nil {
		logger.WithOrg(orgID).WithError(err).Error("permission check failed")
		return g.redirect(match, RouteHome, nil, nil, ReasonPermissionCheckFailed), true
	}

	orgParams := map[string]string{"id": orgID}

	if meta.RequiresAdmin && !g.perms.IsAdmin(orgID) {
		return g.redirect(match, RouteOrgManage, orgParams, nil, ReasonAdminRequired), true
	}

	if meta.RequiresMember && !g.perms.IsMember(orgID) {
		return g.redirect(match, RouteHome, nil, nil, ReasonNotMember), true
	}

	if len(meta.RequiresPermission) > 0 {
		var allowed bool
		switch {
		case len(meta.RequiresPermission) == 1:
			allowed = g.perms.HasPermission(orgID, meta.RequiresPermission[0])
		case meta.RequiresAllPermissions:
			allowed = g.perms.HasAllPermissions(orgID, meta.RequiresPermission)
		default:
			allowed = g.perms.HasAnyPermission(orgID, meta.RequiresPermission)
		}
		if !allowed {
			return g.redirect(match, RouteOrgManage, orgParams, nil, ReasonInsufficientPermissions), true
		}
	}

	return Decision{}, false
}

// restoreIfNeeded performs the one-shot session restore for this navigation.
// Restore failure means "no identity" and is never fatal here.
func (g *Guard) restoreIfNeeded(ctx context.Context) {
	if g.session.Current() == nil && !g.session.Restoring() {
		g.session.Restore(ctx)
	}
}

func (g *Guard) redirect(match *Match, to string, params map[string]string, query url.Values, reason string) Decision {
	if query == nil {
		query = url.Values{}
	}
	if reason != "" && reason != ReasonAuthRequired && reason != ReasonAlreadyAuthenticated {
		query.Set("error", reason)
	}
	return Decision{
		Outcome: OutcomeRedirected,
		Route:   match.Route,
		Redirect: &Redirect{
			To:     to,
			Params: params,
			Query:  query,
			Reason: reason,
		},
	}
}
