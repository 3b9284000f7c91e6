package server

import (
	"github.com/jrsteele09/academy-portal/internal/metrics"
	"github.com/jrsteele09/academy-portal/users"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler())

	for _, role := range users.Roles {
		// Pages
		s.RegisterRouteHandler("GET "+role.LoginRoute(), ChainMiddleware(s.LoginPageHandler(role), s.PageMiddleware()...))
		s.RegisterRouteHandler("GET "+role.DashboardRoute(), ChainMiddleware(s.DashboardHandler(role), s.PageMiddleware(s.RequireRole(role))...))

		// Session API
		s.RegisterRouteHandler("POST "+RouteAPISession(role), ChainMiddleware(s.SessionCreateHandler(role), s.APIMiddleware()...))
		s.RegisterRouteHandler("GET "+RouteAPISession(role), ChainMiddleware(s.SessionGetHandler(role), s.APIMiddleware()...))
		s.RegisterRouteHandler("POST "+RouteAPILogout(role), ChainMiddleware(s.LogoutHandler(role), s.APIMiddleware()...))

		// REST backend, any method
		s.RegisterRouteHandler(RouteAPIProxy(role)+"{path...}", ChainMiddleware(s.ProxyHandler(role), s.APIMiddleware(s.RequireRoleAPI(role))...))
	}
}
