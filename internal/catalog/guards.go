package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/vango-dev/waypoint/pkg/router"
)

// LoginPath is where RequireAuth sends anonymous users.
const LoginPath = "/login"

// MaintenancePath is where Maintenance sends every navigation while
// maintenance mode is on.
const MaintenancePath = "/maintenance"

// RequireAuth redirects anonymous users to LoginPath, passing the target
// as the "next" query value.
var RequireAuth = router.GuardFunc(func(_ context.Context, _ *router.MatchResult, nav *router.NavigationContext) (router.Outcome, error) {
	if user, _ := nav.SessionValue(KeyUser).(string); user != "" {
		return router.Allow(), nil
	}
	return router.Redirect(LoginPath, map[string]string{"next": nav.TargetPath}), nil
})

// RequireRole admits users holding the role named by the "requiredRole"
// route data. Routes without that key are admitted.
var RequireRole = router.GuardFunc(func(_ context.Context, m *router.MatchResult, nav *router.NavigationContext) (router.Outcome, error) {
	v, ok := m.Data("requiredRole")
	if !ok {
		return router.Allow(), nil
	}
	role, ok := v.(string)
	if !ok {
		return router.Outcome{}, fmt.Errorf("requiredRole is %T, want string", v)
	}
	roles, _ := nav.SessionValue(KeyRoles).([]string)
	if slices.Contains(roles, role) {
		return router.Allow(), nil
	}
	return router.Deny("missing role " + role), nil
})

// RequireFeature admits navigations when the feature named by the
// "feature" route data is enabled in the session.
var RequireFeature = router.GuardFunc(func(_ context.Context, m *router.MatchResult, nav *router.NavigationContext) (router.Outcome, error) {
	v, _ := m.Data("feature")
	feature, _ := v.(string)
	if feature == "" {
		return router.Allow(), nil
	}
	features, _ := nav.SessionValue(KeyFeatures).([]string)
	if slices.Contains(features, feature) {
		return router.Allow(), nil
	}
	return router.Deny("feature " + feature + " disabled"), nil
})

// Maintenance redirects to MaintenancePath while maintenance mode is on.
var Maintenance = router.GuardFunc(func(_ context.Context, _ *router.MatchResult, nav *router.NavigationContext) (router.Outcome, error) {
	if on, _ := nav.SessionValue(KeyMaintenance).(bool); on && nav.TargetPath != MaintenancePath {
		return router.Redirect(MaintenancePath, nil), nil
	}
	return router.Allow(), nil
})
