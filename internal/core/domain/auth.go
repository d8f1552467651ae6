package domain

// Role defines a principal's permission level
type Role string

const (
	RoleAdmin  Role = "admin"  // Sees and manages every document
	RoleMember Role = "member" // Uploads documents, queries approved content
	RoleViewer Role = "viewer" // Queries approved content only
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember || r == RoleViewer
}

// AuthContext contains the authenticated principal for request context
type AuthContext struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
}

// IsAdmin checks if the authenticated principal is an admin
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanUpload reports whether the principal may create documents and revisions.
func (a *AuthContext) CanUpload() bool {
	return a.Role == RoleAdmin || a.Role == RoleMember
}

// CanManage reports whether the principal may change the given document.
func (a *AuthContext) CanManage(doc *SourceDocument) bool {
	return a.IsAdmin() || (doc != nil && doc.OwnerID == a.UserID && a.CanUpload())
}

// Scope returns the default access scope for the principal.
func (a *AuthContext) Scope() AccessScope {
	if a.IsAdmin() {
		return AccessScope{Kind: ScopeAll, UserID: a.UserID}
	}
	return AccessScope{Kind: ScopeApproved, UserID: a.UserID}
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
	IssuedAt   int64  `json:"iat"`
	ExpiresAt  int64  `json:"exp"`
}
