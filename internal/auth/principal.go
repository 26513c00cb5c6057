package auth

// Principal is the authenticated actor making a request. It is threaded
// explicitly through every call that needs to know who is acting; there is
// no ambient "current user".
type Principal struct {
	ID      int64
	IsAdmin bool
}

// CanAct reports whether the principal may act on resources belonging to
// targetUserID: admins may act on anyone, everyone else only on themselves.
// Cart, favorites, notifications, orders and payments all share this rule.
func CanAct(p Principal, targetUserID int64) bool {
	return p.IsAdmin || p.ID == targetUserID
}
