package http

type Config struct {
	Port uint `mapstructure:"port"`
	// AllowedOrigins feeds the CORS middleware. Empty means same-origin only.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// CookieSecure marks session and workspace cookies Secure. On in prod.
	CookieSecure bool `mapstructure:"cookie_secure"`
	// SessionCookieMaxAge in seconds for the session cookie written on login.
	SessionCookieMaxAge int `mapstructure:"session_cookie_max_age"`
}
