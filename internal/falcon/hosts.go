package falcon

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// WindowsFilter limits inventory queries to Windows endpoints.
const WindowsFilter = "platform_name:'Windows'"

type Pagination struct {
	Offset string `json:"offset"`
	Limit  int    `json:"limit"`
	Total  int    `json:"total"`
}

type queryMeta struct {
	Pagination Pagination `json:"pagination"`
}

// DevicePage is one page of device IDs plus the cursor for the next one.
type DevicePage struct {
	Resources []string
	Offset    string
	Total     int
}

type deviceQueryResponse struct {
	Meta      queryMeta `json:"meta"`
	Resources []string  `json:"resources"`
}

// QueryDevices pages through every device in the CID matching filter. The
// offset is the opaque scroll token from the previous page; empty means start
// from the beginning.
func (c *Client) QueryDevices(ctx context.Context, filter, offset string, limit int) (*DevicePage, error) {
	q := url.Values{}
	q.Set("filter", filter)
	q.Set("limit", strconv.Itoa(limit))
	if offset != "" {
		q.Set("offset", offset)
	}

	var out deviceQueryResponse
	if err := c.do(ctx, http.MethodGet, "/devices/queries/devices-scroll/v1", q, nil, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}

	return &DevicePage{
		Resources: out.Resources,
		Offset:    out.Meta.Pagination.Offset,
		Total:     out.Meta.Pagination.Total,
	}, nil
}

// QueryGroupMembers pages through the members of one host group matching
// filter. The first page must omit the offset parameter entirely; subsequent
// pages pass the token returned by the previous call.
func (c *Client) QueryGroupMembers(ctx context.Context, groupID, filter, offset string, limit int) (*DevicePage, error) {
	q := url.Values{}
	q.Set("id", groupID)
	q.Set("filter", filter)
	q.Set("limit", strconv.Itoa(limit))
	if offset != "" {
		q.Set("offset", offset)
	}

	var out deviceQueryResponse
	if err := c.do(ctx, http.MethodGet, "/devices/queries/host-group-members/v1", q, nil, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}

	return &DevicePage{
		Resources: out.Resources,
		Offset:    out.Meta.Pagination.Offset,
		Total:     out.Meta.Pagination.Total,
	}, nil
}
