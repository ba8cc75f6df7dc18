// Package netx holds small HTTP helpers shared by the client.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var DefaultDoer HTTPDoer = http.DefaultClient

// UploadToPresignedURL PUTs body to a presigned object storage URL. The
// content type must match the one the URL was signed for.
func UploadToPresignedURL(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := DefaultDoer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

// DetectContentType sniffs the MIME type of data, dropping any parameters.
func DetectContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := bytes.IndexByte([]byte(ct), ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}
