package server

import "github.com/jrsteele09/academy-portal/users"

// Route path constants
// Role-specific routes are built from the role's path segment, e.g. /coach/dashboard and
// /api/coach/session
const (
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	routeAPIPrefix = "/api/"
)

// RouteAPISession is where a role's login response is posted and its session inspected.
func RouteAPISession(role users.RoleType) string {
	return routeAPIPrefix + role.PathSegment() + "/session"
}

func RouteAPILogout(role users.RoleType) string {
	return routeAPIPrefix + role.PathSegment() + "/logout"
}

// RouteAPIProxy is the prefix under which requests are forwarded to the REST backend.
func RouteAPIProxy(role users.RoleType) string {
	return routeAPIPrefix + role.PathSegment() + "/proxy/"
}
