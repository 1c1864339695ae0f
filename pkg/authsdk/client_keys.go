package authsdk

import (
	"context"
	"errors"
	"net/http"
)

var errNoAdminToken = errors.New("authsdk: AdminToken is not set")

func (c *SDKClient) adminHeaders() (map[string]string, error) {
	if c.AdminToken == "" {
		return nil, errNoAdminToken
	}
	return map[string]string{"X-Admin-Token": c.AdminToken}, nil
}

// ListKeys returns the signing key table, newest first.
// Requires: AdminToken
func (c *SDKClient) ListKeys(ctx context.Context) ([]SigningKeyInfo, error) {
	headers, err := c.adminHeaders()
	if err != nil {
		return nil, err
	}
	resp, err := c.doRequest(ctx, http.MethodGet, "/auth/v2/keys", nil, headers)
	if err != nil {
		return nil, err
	}

	var out ListKeysResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Keys, nil
}

// RotateKey activates a new signing key. The previous key keeps verifying
// tokens until its overlap window ends.
// Requires: AdminToken
func (c *SDKClient) RotateKey(ctx context.Context) (*RotateKeyResponse, error) {
	headers, err := c.adminHeaders()
	if err != nil {
		return nil, err
	}
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/v2/keys/rotate", nil, headers)
	if err != nil {
		return nil, err
	}

	var out RotateKeyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
