package apiclient

import (
	"context"
	"fmt"

	"github.com/codeexpert/syncengine/pkg/project"
)

// ProjectInfoResponse is the decoded body of GET project/{id}/info.
type ProjectInfoResponse struct {
	ID    project.ID               `json:"_id"`
	Files []project.RemoteFileInfo `json:"files"`
}

// GetProjectInfo fetches the authoritative remote inventory for id.
func (c *Client) GetProjectInfo(ctx context.Context, id project.ID) (*ProjectInfoResponse, error) {
	var out ProjectInfoResponse
	err := c.Request(ctx, RequestOpts{
		Method: "GET",
		Path:   fmt.Sprintf("project/%s/info", id),
		Signed: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProjectFile downloads one file's raw content.
func (c *Client) GetProjectFile(ctx context.Context, id project.ID, path string) ([]byte, error) {
	return c.RequestText(ctx, RequestOpts{
		Method:     "GET",
		Path:       fmt.Sprintf("project/%s/file", id),
		JWTPayload: map[string]any{"path": path},
		Signed:     true,
	})
}

// PostProjectFilesRequest is the JSON half of the multi-part upload call:
// the signed JWT payload embeds either {tarHash, removeFiles} when a tar
// body is attached, or just {removeFiles} when the run has nothing to
// upload.
type PostProjectFilesRequest struct {
	TarHash     string   `json:"tarHash,omitempty"`
	RemoveFiles []string `json:"removeFiles"`
}

// PostProjectFiles uploads tarBody (may be nil/empty when nothing changed
// locally) and the list of paths to remove remotely, returning the updated
// inventory.
func (c *Client) PostProjectFiles(ctx context.Context, id project.ID, tarHash string, tarBody []byte, removeFiles []string) (*ProjectInfoResponse, error) {
	payload := map[string]any{"removeFiles": removeFiles}
	if tarHash != "" {
		payload["tarHash"] = tarHash
	}

	opts := RequestOpts{
		Method:     "POST",
		Path:       fmt.Sprintf("project/%s/files", id),
		JWTPayload: payload,
		Signed:     true,
	}
	if len(tarBody) > 0 {
		opts.BodyKind = BodyBinary
		opts.Body = tarBody
		opts.ContentType = "application/x-tar"
		opts.Encoding = "br"
	}

	var out ProjectInfoResponse
	if err := c.Request(ctx, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckAccessResponse is the decoded body of GET app/checkAccess.
type CheckAccessResponse struct {
	Status string `json:"status"`
}

// CheckAccess confirms the signed client is still authorised to call the
// remote API.
func (c *Client) CheckAccess(ctx context.Context) (*CheckAccessResponse, error) {
	var out CheckAccessResponse
	if err := c.Request(ctx, RequestOpts{Method: "GET", Path: "app/checkAccess", Signed: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterRequest is the body of POST app/register.
type RegisterRequest struct {
	OS          string   `json:"os"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Token       string   `json:"token"`
	Permissions []string `json:"permissions"`
}

// RegisterResponse is the decoded body of POST app/register.
type RegisterResponse struct {
	ClientID string `json:"clientId"`
}

// Register enrols this device with the server and returns its assigned
// client id.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	err := c.Request(ctx, RequestOpts{
		Method:   "POST",
		Path:     "app/register",
		Body:     req,
		BodyKind: BodyJSON,
		Signed:   true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ClientIDResponse is the decoded body of GET app/clientId.
type ClientIDResponse struct {
	Token string `json:"token"`
}

// GetClientID is the one unsigned endpoint: it hands back a bootstrap token
// before the client has registered (and thus before it has anything to
// sign with).
func (c *Client) GetClientID(ctx context.Context) (*ClientIDResponse, error) {
	var out ClientIDResponse
	if err := c.Request(ctx, RequestOpts{Method: "GET", Path: "app/clientId", Signed: false}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
