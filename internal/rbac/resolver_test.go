package rbac

import "testing"

func testCatalog() []Permission {
	return []Permission{
		{ID: 1, Resource: "directory", Action: "edit"},
		{ID: 2, Resource: "directory", Action: "view"},
		{ID: 3, Resource: "patients", Action: "view"},
	}
}

func TestResolveOneDecisionPerPermission(t *testing.T) {
	catalog := testCatalog()
	rules := []RoleRule{
		{RoleID: 1, RoleName: "Staff", PermissionID: 2, Effect: EffectAllow},
		// References a permission absent from the catalog; must be ignored.
		{RoleID: 1, RoleName: "Staff", PermissionID: 99, Effect: EffectAllow},
	}
	results := ResolveEffective(catalog, nil, rules)
	if len(results) != len(catalog) {
		t.Fatalf("expected %d decisions, got %d", len(catalog), len(results))
	}
	seen := make(map[int64]bool)
	for i, ep := range results {
		if seen[ep.PermissionID] {
			t.Fatalf("duplicate decision for permission %d", ep.PermissionID)
		}
		seen[ep.PermissionID] = true
		if ep.PermissionID != catalog[i].ID {
			t.Fatalf("result %d out of catalog order: got permission %d", i, ep.PermissionID)
		}
	}
}

func TestResolveOverrideSupremacy(t *testing.T) {
	catalog := testCatalog()
	rules := []RoleRule{
		{RoleID: 1, RoleName: "Clinician", PermissionID: 3, Effect: EffectAllow},
	}
	overrides := []Override{
		{UserID: 7, PermissionID: 3, Effect: EffectDeny},
	}
	results := ResolveEffective(catalog, overrides, rules)
	var got EffectivePermission
	for _, ep := range results {
		if ep.PermissionID == 3 {
			got = ep
		}
	}
	if got.Allowed {
		t.Fatalf("override deny must beat role allow")
	}
	if got.Source != SourceUserOverride {
		t.Fatalf("expected source user_override, got %s", got.Source)
	}
	if got.Details != "User override: deny" {
		t.Fatalf("unexpected details %q", got.Details)
	}
}

func TestResolveDenyWinsAcrossRoles(t *testing.T) {
	catalog := testCatalog()
	rules := []RoleRule{
		{RoleID: 1, RoleName: "Clinician", PermissionID: 3, Effect: EffectAllow},
		{RoleID: 2, RoleName: "Trainee", PermissionID: 3, Effect: EffectDeny},
	}
	results := ResolveEffective(catalog, nil, rules)
	for _, ep := range results {
		if ep.PermissionID != 3 {
			continue
		}
		if ep.Allowed {
			t.Fatalf("deny must win over allow across roles")
		}
		if ep.Source != SourceRole {
			t.Fatalf("expected source role, got %s", ep.Source)
		}
		if ep.Details != `Denied by role "Trainee"` {
			t.Fatalf("unexpected details %q", ep.Details)
		}
		return
	}
	t.Fatalf("permission 3 missing from results")
}

func TestResolveDefaultDeny(t *testing.T) {
	results := ResolveEffective(testCatalog(), nil, nil)
	for _, ep := range results {
		if ep.Allowed {
			t.Fatalf("permission %d allowed with no roles and no overrides", ep.PermissionID)
		}
		if ep.Source != SourceDenied {
			t.Fatalf("expected source denied, got %s", ep.Source)
		}
		if ep.Details != "Default deny (no matching rules)" {
			t.Fatalf("unexpected details %q", ep.Details)
		}
	}
}

func TestResolveFirstDenyingRoleIsStable(t *testing.T) {
	catalog := testCatalog()
	// Repository orders rules by role name; the resolver must report the
	// first denier in that order.
	rules := []RoleRule{
		{RoleID: 3, RoleName: "Locum", PermissionID: 2, Effect: EffectDeny},
		{RoleID: 2, RoleName: "Trainee", PermissionID: 2, Effect: EffectDeny},
		{RoleID: 1, RoleName: "Clinician", PermissionID: 2, Effect: EffectAllow},
	}
	results := ResolveEffective(catalog, nil, rules)
	for _, ep := range results {
		if ep.PermissionID == 2 && ep.Details != `Denied by role "Locum"` {
			t.Fatalf("unexpected details %q", ep.Details)
		}
	}
}

func TestResolveRoleAllow(t *testing.T) {
	catalog := testCatalog()
	rules := []RoleRule{
		{RoleID: 1, RoleName: "Clinician", PermissionID: 3, Effect: EffectAllow},
	}
	results := ResolveEffective(catalog, nil, rules)
	for _, ep := range results {
		if ep.PermissionID != 3 {
			continue
		}
		if !ep.Allowed || ep.Source != SourceRole {
			t.Fatalf("expected role allow, got allowed=%v source=%s", ep.Allowed, ep.Source)
		}
		if ep.Details != `Granted by role "Clinician"` {
			t.Fatalf("unexpected details %q", ep.Details)
		}
	}
}
