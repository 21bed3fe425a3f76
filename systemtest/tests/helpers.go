package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
)

// Client drives the engine like a browser would: it keeps the bearer token
// and any cookies set by previous responses.
type Client struct {
	Engine  *gin.Engine
	Token   string
	Cookies []*http.Cookie
}

func (c *Client) Do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for _, cookie := range c.Cookies {
		req.AddCookie(cookie)
	}

	rr := httptest.NewRecorder()
	c.Engine.ServeHTTP(rr, req)
	c.absorbCookies(rr)
	return rr
}

// absorbCookies merges Set-Cookie headers into the client jar, dropping
// cookies cleared by a negative max-age.
func (c *Client) absorbCookies(rr *httptest.ResponseRecorder) {
	for _, set := range rr.Result().Cookies() {
		kept := c.Cookies[:0]
		for _, existing := range c.Cookies {
			if existing.Name != set.Name {
				kept = append(kept, existing)
			}
		}
		c.Cookies = kept
		if set.MaxAge >= 0 && set.Value != "" {
			c.Cookies = append(c.Cookies, set)
		}
	}
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	c := Client{Engine: router}
	return c.Do(method, path, body)
}
