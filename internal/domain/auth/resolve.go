package auth

// RoleInputs gathers everything known about an email when deciding its role.
// Zero values mean "not present".
type RoleInputs struct {
	Email           string
	SuperadminEmail string
	StoredRole      Role // role on the persisted user record
	HintRole        Role // role carried by a token or dev header
	AllowlistRole   Role // role on the allowlist entry
}

// ResolveRole applies the fixed precedence chain:
//  1. configured superadmin email
//  2. persisted user record
//  3. caller-supplied hint
//  4. allowlist entry
//  5. user
//
// Only the configured superadmin email can resolve to superadmin; a
// superadmin value found anywhere else is reduced to admin.
func ResolveRole(in RoleInputs) Role {
	email := NormalizeEmail(in.Email)
	if email != "" && email == NormalizeEmail(in.SuperadminEmail) {
		return RoleSuperadmin
	}
	for _, r := range []Role{in.StoredRole, in.HintRole, in.AllowlistRole} {
		if !r.Valid() {
			continue
		}
		if r == RoleSuperadmin {
			return RoleAdmin
		}
		return r
	}
	return RoleUser
}
