package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Backland-Labs/runclient/internal/schema"
)

// Upload obtains an upload ticket and PUTs size bytes from r to it.
// The returned ticket's DownloadURL can then be passed as a run input.
func (c *Client) Upload(ctx context.Context, fileType string, r io.Reader, size int64) (*schema.UploadTicket, error) {
	const op = "upload"

	ticket, err := c.GetUploadURL(ctx, fileType, size)
	if err != nil {
		return nil, err
	}

	// A non-nil body with zero length would be sent chunked
	var body io.Reader = http.NoBody
	if size > 0 {
		body = io.LimitReader(r, size)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, ticket.UploadURL, body)
	if err != nil {
		return nil, c.fail(&Error{Op: op, Kind: KindNetwork, Err: fmt.Errorf("failed to create request: %w", err)})
	}
	// Upload URLs are pre-signed; the bearer token is not sent to them.
	req.ContentLength = size
	req.Header.Set("Content-Type", fileType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(classify(ctx, op, KindNetwork, fmt.Errorf("failed to upload file: %w", err)))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(&Error{
			Op:         op,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        errors.New("upload rejected"),
		})
	}

	c.log.WithField("file_id", ticket.FileID).Debug("File uploaded")
	return ticket, nil
}
