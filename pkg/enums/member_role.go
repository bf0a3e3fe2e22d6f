package enums

// MemberRole scopes what an authenticated actor may do.
type MemberRole string

const (
	MemberRoleCustomer MemberRole = "customer"
	MemberRoleSeller   MemberRole = "seller"
	MemberRoleAdmin    MemberRole = "admin"
)

func (r MemberRole) IsValid() bool {
	switch r {
	case MemberRoleCustomer, MemberRoleSeller, MemberRoleAdmin:
		return true
	default:
		return false
	}
}
