package rbac

import "fmt"

// ResolveEffective computes one decision per catalog permission for a single
// principal. Precedence: user override, then any role deny, then any role
// allow, then default deny. The function is pure; callers fetch the inputs.
//
// Rules referencing permissions absent from the catalog never match because
// iteration is driven by the catalog, not the rule set. Result order follows
// catalog order.
func ResolveEffective(catalog []Permission, overrides []Override, rules []RoleRule) []EffectivePermission {
	overrideByPerm := make(map[int64]Override, len(overrides))
	for _, o := range overrides {
		overrideByPerm[o.PermissionID] = o
	}

	// Preserve fetch order within each permission so "the first denying or
	// allowing role" is well defined. The repository orders rules by role
	// name, which keeps the explanatory text deterministic.
	rulesByPerm := make(map[int64][]RoleRule, len(rules))
	for _, r := range rules {
		rulesByPerm[r.PermissionID] = append(rulesByPerm[r.PermissionID], r)
	}

	results := make([]EffectivePermission, 0, len(catalog))
	for _, p := range catalog {
		ep := EffectivePermission{
			PermissionID: p.ID,
			Resource:     p.Resource,
			Action:       p.Action,
		}

		if o, ok := overrideByPerm[p.ID]; ok {
			ep.Allowed = o.Effect == EffectAllow
			ep.Source = SourceUserOverride
			ep.Details = fmt.Sprintf("User override: %s", o.Effect)
			results = append(results, ep)
			continue
		}

		var denyRole, allowRole string
		var denied, allowed bool
		for _, r := range rulesByPerm[p.ID] {
			switch r.Effect {
			case EffectDeny:
				if !denied {
					denied = true
					denyRole = r.RoleName
				}
			case EffectAllow:
				if !allowed {
					allowed = true
					allowRole = r.RoleName
				}
			}
		}

		switch {
		case denied:
			// Deny wins over allow across roles: least privilege.
			ep.Allowed = false
			ep.Source = SourceRole
			ep.Details = fmt.Sprintf("Denied by role %q", denyRole)
		case allowed:
			ep.Allowed = true
			ep.Source = SourceRole
			ep.Details = fmt.Sprintf("Granted by role %q", allowRole)
		default:
			ep.Allowed = false
			ep.Source = SourceDenied
			ep.Details = "Default deny (no matching rules)"
		}
		results = append(results, ep)
	}
	return results
}
