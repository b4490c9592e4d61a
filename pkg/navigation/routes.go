package navigation

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rosterly/rosterly/pkg/permissions"
)

// Well-known route names the guard redirects to.
const (
	RouteLogin     = "login"
	RouteSignup    = "signup"
	RouteHome      = "home"
	RouteOrgManage = "org.manage"
)

// RouteMeta declares a route's access requirements.
type RouteMeta struct {
	RequiresAuth   bool
	RequiresAdmin  bool
	RequiresMember bool

	// RequiresPermission holds one or more permission names; a list is
	// evaluated as "any" unless RequiresAllPermissions is set.
	RequiresPermission     []permissions.Permission
	RequiresAllPermissions bool
}

// gated reports whether the meta declares any organization-scoped requirement.
func (m RouteMeta) gated() bool {
	return m.RequiresAdmin || m.RequiresMember || len(m.RequiresPermission) > 0
}

// Route is one named navigation target.
type Route struct {
	Name    string
	Pattern string // mux-style pattern, e.g. /organizations/{id}/members
	Parent  string // name of the parent route in the nested tree, if any
	Meta    RouteMeta
}

// Match is a resolved navigation target.
type Match struct {
	Route  *Route
	Params map[string]string
	// Chain is the route and its ancestors, root first.
	Chain []*Route
}

// EffectiveMeta merges requirements along the route chain: boolean flags
// accumulate, and the deepest route declaring permissions wins.
func (m *Match) EffectiveMeta() RouteMeta {
	var meta RouteMeta
	for _, r := range m.Chain {
		if r.Meta.RequiresAuth {
			meta.RequiresAuth = true
		}
		if r.Meta.RequiresAdmin {
			meta.RequiresAdmin = true
		}
		if r.Meta.RequiresMember {
			meta.RequiresMember = true
		}
		if len(r.Meta.RequiresPermission) > 0 {
			meta.RequiresPermission = r.Meta.RequiresPermission
			meta.RequiresAllPermissions = r.Meta.RequiresAllPermissions
		}
	}
	return meta
}

// Registry holds the route table and resolves concrete paths against it.
type Registry struct {
	router *mux.Router
	routes map[string]*Route
}

// NewRegistry creates an empty route registry.
func NewRegistry() *Registry {
	return &Registry{
		router: mux.NewRouter(),
		routes: make(map[string]*Route),
	}
}

// Register adds routes to the table. Route names must be unique and parents
// must be registered before (or together with) their children.
func (r *Registry) Register(routes ...Route) error {
	for i := range routes {
		route := routes[i]
		if route.Name == "" || route.Pattern == "" {
			return fmt.Errorf("navigation: route name and pattern are required")
		}
		if _, exists := r.routes[route.Name]; exists {
			return fmt.Errorf("navigation: duplicate route name %q", route.Name)
		}
		r.routes[route.Name] = &route
		r.router.Path(route.Pattern).Name(route.Name)
	}
	for _, route := range r.routes {
		if route.Parent == "" {
			continue
		}
		if _, ok := r.routes[route.Parent]; !ok {
			return fmt.Errorf("navigation: route %q references unknown parent %q", route.Name, route.Parent)
		}
	}
	return nil
}

// Lookup returns a registered route by name.
func (r *Registry) Lookup(name string) (*Route, bool) {
	route, ok := r.routes[name]
	return route, ok
}

// Match resolves a concrete path to a route and its path parameters.
func (r *Registry) Match(path string) (*Match, bool) {
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, false
	}
	var routeMatch mux.RouteMatch
	if !r.router.Match(req, &routeMatch) || routeMatch.Route == nil {
		return nil, false
	}
	route, ok := r.routes[routeMatch.Route.GetName()]
	if !ok {
		return nil, false
	}

	chain := []*Route{route}
	for parent := route.Parent; parent != ""; {
		p, ok := r.routes[parent]
		if !ok {
			break
		}
		chain = append([]*Route{p}, chain...)
		parent = p.Parent
	}

	return &Match{
		Route:  route,
		Params: routeMatch.Vars,
		Chain:  chain,
	}, true
}

// DefaultRoutes is the product route table consumed by the guard.
func DefaultRoutes() []Route {
	return []Route{
		{Name: RouteHome, Pattern: "/"},
		{Name: RouteLogin, Pattern: "/login"},
		{Name: RouteSignup, Pattern: "/signup"},

		{Name: "dashboard", Pattern: "/dashboard", Meta: RouteMeta{RequiresAuth: true}},
		{Name: "me.profile", Pattern: "/me", Meta: RouteMeta{RequiresAuth: true}},
		{Name: "orgs.list", Pattern: "/organizations", Meta: RouteMeta{RequiresAuth: true}},

		{Name: "org.view", Pattern: "/organizations/{id}", Meta: RouteMeta{
			RequiresAuth:   true,
			RequiresMember: true,
		}},
		{Name: RouteOrgManage, Pattern: "/organizations/{id}/manage", Parent: "org.view", Meta: RouteMeta{
			RequiresAuth:   true,
			RequiresMember: true,
		}},
		{Name: "org.members", Pattern: "/organizations/{id}/members", Parent: "org.view", Meta: RouteMeta{
			RequiresAuth:       true,
			RequiresPermission: []permissions.Permission{permissions.PermissionViewMembers},
		}},
		{Name: "org.settings", Pattern: "/organizations/{id}/settings", Parent: "org.view", Meta: RouteMeta{
			RequiresAuth:  true,
			RequiresAdmin: true,
		}},
		{Name: "org.announcements", Pattern: "/organizations/{id}/announcements", Parent: "org.view", Meta: RouteMeta{
			RequiresAuth:       true,
			RequiresPermission: []permissions.Permission{permissions.PermissionViewAnnouncements},
		}},
		{Name: "org.storage", Pattern: "/organizations/{id}/storage", Parent: "org.view", Meta: RouteMeta{
			RequiresAuth:       true,
			RequiresPermission: []permissions.Permission{permissions.PermissionViewStorage},
		}},
		{Name: "org.reviews", Pattern: "/organizations/{id}/reviews", Parent: "org.view", Meta: RouteMeta{
			RequiresAuth:       true,
			RequiresPermission: []permissions.Permission{permissions.PermissionCreateReviews, permissions.PermissionManageReviews},
		}},
		{Name: "org.statistics", Pattern: "/organizations/{id}/statistics", Parent: "org.view", Meta: RouteMeta{
			RequiresAuth:       true,
			RequiresPermission: []permissions.Permission{permissions.PermissionViewStatistics, permissions.PermissionViewOwnStatistics},
		}},
		{Name: "duty.schedule", Pattern: "/organizations/{id}/duty", Parent: "org.view", Meta: RouteMeta{
			RequiresAuth:       true,
			RequiresPermission: []permissions.Permission{permissions.PermissionParticipateInDuties},
		}},
		{Name: "duty.manage", Pattern: "/organizations/{id}/duty/manage", Parent: "org.view", Meta: RouteMeta{
			RequiresAuth:       true,
			RequiresPermission: []permissions.Permission{permissions.PermissionManageDutySystem},
		}},
	}
}
