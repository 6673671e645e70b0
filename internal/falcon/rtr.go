package falcon

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type batchInitRequest struct {
	HostIDs      []string `json:"host_ids"`
	QueueOffline bool     `json:"queue_offline"`
}

type batchInitResponse struct {
	BatchID string `json:"batch_id"`
}

// BatchInitSessions opens one RTR batch session across the given hosts.
// With queueOffline set, hosts that are not connected receive the session's
// commands when they next check in; the platform owns that delivery and the
// caller never waits on it.
func (c *Client) BatchInitSessions(ctx context.Context, hostIDs []string, queueOffline bool) (string, error) {
	req := batchInitRequest{HostIDs: hostIDs, QueueOffline: queueOffline}

	var out batchInitResponse
	if err := c.do(ctx, http.MethodPost, "/real-time-response/combined/batch-init-session/v1", nil, req, http.StatusCreated, &out); err != nil {
		return "", fmt.Errorf("init batch session: %w", err)
	}

	return out.BatchID, nil
}

type batchCommandRequest struct {
	BatchID       string `json:"batch_id"`
	BaseCommand   string `json:"base_command"`
	CommandString string `json:"command_string"`
}

// BatchCommand runs an unprivileged (active-responder) command on every host
// in the batch. Any status other than 201 comes back as *APIError.
func (c *Client) BatchCommand(ctx context.Context, batchID, base, command string) error {
	req := batchCommandRequest{BatchID: batchID, BaseCommand: base, CommandString: command}
	return c.do(ctx, http.MethodPost, "/real-time-response/combined/batch-active-responder-command/v1", nil, req, http.StatusCreated, nil)
}

// BatchAdminCommand runs a privileged command (put, runscript) on every host
// in the batch.
func (c *Client) BatchAdminCommand(ctx context.Context, batchID, base, command string) error {
	req := batchCommandRequest{BatchID: batchID, BaseCommand: base, CommandString: command}
	return c.do(ctx, http.MethodPost, "/real-time-response/combined/batch-admin-command/v1", nil, req, http.StatusCreated, nil)
}

// PutFile is a file staged in the RTR cloud repository, deployable to
// endpoints with the put command.
type PutFile struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	SHA256            string `json:"sha256"`
	ModifiedTimestamp string `json:"modified_timestamp"`
	ModifiedBy        string `json:"modified_by"`
}

type putFileQueryResponse struct {
	Resources []string `json:"resources"`
}

type putFileEntityResponse struct {
	Resources []PutFile `json:"resources"`
}

// ListPutFiles returns every file staged in the put-file repository. The
// repository is small by design; a single page covers it.
func (c *Client) ListPutFiles(ctx context.Context) ([]PutFile, error) {
	var ids putFileQueryResponse
	if err := c.do(ctx, http.MethodGet, "/real-time-response/queries/put-files/v1", nil, nil, http.StatusOK, &ids); err != nil {
		return nil, fmt.Errorf("query put files: %w", err)
	}

	if len(ids.Resources) == 0 {
		return nil, nil
	}

	q := url.Values{}
	for _, id := range ids.Resources {
		q.Add("ids", id)
	}

	var out putFileEntityResponse
	if err := c.do(ctx, http.MethodGet, "/real-time-response/entities/put-files/v2", q, nil, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("fetch put file details: %w", err)
	}

	return out.Resources, nil
}
