package wmsapi

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, request{op: "auth.login", method: http.MethodPost, path: "/api/auth/login", body: creds}, &out)
	return out, err
}

// Register creates an account and returns the server's confirmation text.
func (c *Client) Register(ctx context.Context, reg Registration) (string, error) {
	var out string
	err := c.do(ctx, request{op: "auth.register", method: http.MethodPost, path: "/api/auth/register", body: reg}, &out)
	return out, err
}
