package workspace

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/renthus/renthus-admin/internal/auth"
	"github.com/renthus/renthus-admin/internal/db"
)

// Access carries the request-scoped tenant context resolved by the gate.
type Access struct {
	CompanyID string
	UserID    string
	Role      string
}

// AccessError is the tagged failure half of the gate result.
type AccessError struct {
	Status  int
	Message string
}

func (e *AccessError) Error() string {
	return e.Message
}

// Gate authorizes tenant-scoped requests: workspace cookie, session, active
// membership, and an optional role allow-list.
type Gate struct {
	db        db.DBTX
	jwtSecret string
}

func NewGate(dbtx db.DBTX, jwtSecret string) *Gate {
	return &Gate{
		db:        dbtx,
		jwtSecret: jwtSecret,
	}
}

// UserID resolves the caller from the Authorization header or the session
// cookie. Returns "" when the request carries no valid session.
func (g *Gate) UserID(c *gin.Context) string {
	token := ""
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimPrefix(header, "Bearer ")
	} else if cookie, err := c.Cookie(SessionCookie); err == nil {
		token = cookie
	}
	if token == "" {
		return ""
	}

	claims, err := auth.ValidateToken(g.jwtSecret, token)
	if err != nil {
		return ""
	}
	return claims.UserID
}

// Require resolves the active workspace and verifies the caller's membership.
// Every tenant-scoped handler calls this first and short-circuits on failure.
// It has no side effects.
func (g *Gate) Require(c *gin.Context, allowedRoles ...string) (Access, *AccessError) {
	companyID := CompanyIDFromCookie(c)
	if companyID == "" {
		return Access{}, &AccessError{Status: http.StatusBadRequest, Message: "No workspace selected"}
	}
	if _, err := uuid.Parse(companyID); err != nil {
		return Access{}, &AccessError{Status: http.StatusBadRequest, Message: "No workspace selected"}
	}

	userID := g.UserID(c)
	if userID == "" {
		return Access{}, &AccessError{Status: http.StatusUnauthorized, Message: "Unauthorized"}
	}

	var (
		role     string
		isActive bool
	)
	err := g.db.QueryRow(c.Request.Context(),
		`SELECT role, is_active FROM company_users WHERE company_id = $1 AND user_id = $2`,
		companyID, userID,
	).Scan(&role, &isActive)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.Error("Membership lookup failed", "error", err, "company_id", companyID)
		}
		return Access{}, &AccessError{Status: http.StatusForbidden, Message: "Forbidden"}
	}
	if !isActive {
		return Access{}, &AccessError{Status: http.StatusForbidden, Message: "Forbidden"}
	}

	role = strings.ToLower(role)

	if len(allowedRoles) > 0 {
		allowed := false
		for _, r := range allowedRoles {
			if strings.EqualFold(r, role) {
				allowed = true
				break
			}
		}
		if !allowed {
			return Access{}, &AccessError{Status: http.StatusForbidden, Message: "Insufficient role"}
		}
	}

	return Access{CompanyID: companyID, UserID: userID, Role: role}, nil
}
