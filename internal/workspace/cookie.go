package workspace

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// CompanyCookie holds the active workspace (company) id.
	CompanyCookie = "renthus_company_id"
	// SessionCookie holds the signed session token for browser clients.
	SessionCookie = "renthus_session"

	companyCookieMaxAge = 60 * 60 * 24 * 30 // 30 days
)

// SetCompanyCookie persists the selected workspace id. httpOnly, SameSite=Lax,
// secure when the server runs behind TLS.
func SetCompanyCookie(c *gin.Context, companyID string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CompanyCookie, companyID, companyCookieMaxAge, "/", "", secure, true)
}

// ClearCompanyCookie overwrites the workspace cookie with a zero max-age.
func ClearCompanyCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CompanyCookie, "", -1, "/", "", secure, true)
}

// CompanyIDFromCookie returns the active workspace id, or "" when none is set.
func CompanyIDFromCookie(c *gin.Context) string {
	id, err := c.Cookie(CompanyCookie)
	if err != nil {
		return ""
	}
	return id
}

func SetSessionCookie(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", secure, true)
}

func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}
