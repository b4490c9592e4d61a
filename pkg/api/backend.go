package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rosterly/rosterly/pkg/permissions"
)

// wireID tolerates backends that serialize ids as numbers or strings.
type wireID string

func (w *wireID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*w = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("api: id is neither string nor number: %w", err)
	}
	*w = wireID(n.String())
	return nil
}

// ResolveMembership returns the caller's role and user id within the
// organization. Implements permissions.Backend.
func (c *Client) ResolveMembership(ctx context.Context, orgID string) (permissions.Membership, error) {
	var resp struct {
		UserRole string `json:"user_role"`
		UserID   wireID `json:"user_id"`
	}
	path := "/organizations/" + url.PathEscape(orgID)
	if err := c.Get(ctx, path, &resp); err != nil {
		return permissions.Membership{}, err
	}
	return permissions.Membership{
		Role:   permissions.ParseRole(resp.UserRole),
		UserID: string(resp.UserID),
	}, nil
}

// GrantedPermissions returns the explicit permission grants for a member.
// Implements permissions.Backend.
func (c *Client) GrantedPermissions(ctx context.Context, orgID, userID string) ([]string, error) {
	var resp struct {
		GrantedPermissions []string `json:"granted_permissions"`
		// Older backend builds used a bare "permissions" field
		Permissions []string `json:"permissions"`
	}
	path := "/organizations/" + url.PathEscape(orgID) + "/permissions/users/" + url.PathEscape(userID)
	if err := c.Get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if resp.GrantedPermissions != nil {
		return resp.GrantedPermissions, nil
	}
	return resp.Permissions, nil
}
