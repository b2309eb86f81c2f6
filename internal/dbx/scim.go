package dbx

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const scimPageSize = 100

// User is a workspace user as reported by the SCIM API.
type User struct {
	ID          string `json:"id"`
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName"`
	Active      bool   `json:"active"`
}

type scimListResponse struct {
	Resources    []User `json:"Resources"`
	TotalResults int    `json:"totalResults"`
	StartIndex   int    `json:"startIndex"`
	ItemsPerPage int    `json:"itemsPerPage"`
}

// ListUsers retrieves workspace users via the paginated SCIM API.
// maxUsers > 0 stops early once that many users are collected; 0
// retrieves all. progress, if non-nil, is called after every page.
func (c *Client) ListUsers(ctx context.Context, maxUsers int, progress func(fetched, total int)) ([]User, error) {
	var users []User
	startIndex := 1

	for {
		query := url.Values{
			"startIndex": {strconv.Itoa(startIndex)},
			"count":      {strconv.Itoa(scimPageSize)},
		}

		var resp scimListResponse
		if err := c.GetJSON(ctx, "scim", "/api/2.0/preview/scim/v2/Users", query, nil, &resp); err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}

		if len(resp.Resources) == 0 {
			break
		}

		for _, u := range resp.Resources {
			users = append(users, u)
			if maxUsers > 0 && len(users) >= maxUsers {
				break
			}
		}

		if progress != nil {
			progress(len(users), resp.TotalResults)
		}

		if maxUsers > 0 && len(users) >= maxUsers {
			break
		}
		if resp.TotalResults > 0 && startIndex+scimPageSize > resp.TotalResults {
			break
		}
		startIndex += scimPageSize
	}

	return users, nil
}
