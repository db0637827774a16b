package server

// adminSession identifies an authenticated staff member.
type adminSession struct {
	AdminID string
	Email   string
}

const adminCookieName = "admin_session"
