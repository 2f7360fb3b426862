package s3

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/specialistvlad/flowgridgo/modules/http_request"
	"github.com/zclconf/go-cty/cty"
)

// Type is the node type served by this module.
const Type = "s3"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client is shared with the other request nodes. A nil Client gets a
	// pooled client with the default timeout.
	Client *http.Client
}

// Register registers the executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	client := m.Client
	if client == nil {
		client = http_request.NewClient(0)
	}
	r.Register(Type, &Executor{Client: client})
}

// Executor transfers files to and from pre-signed object storage URLs.
type Executor struct {
	Client *http.Client
}

// Execute implements executor.Executor.
func (e *Executor) Execute(ctx context.Context, props *property.Bag, in executor.Input) executor.Result {
	start := time.Now()
	action, err := props.String("action", "")
	if err != nil {
		return executor.Failed(start, "invalid action: %v", err)
	}

	switch strings.ToLower(action) {
	case "upload":
		return e.upload(ctx, start, props)
	case "download":
		return e.download(ctx, start, props)
	case "":
		return executor.Failed(start, "property 'action' is required")
	}
	return executor.Failed(start, "unknown s3 action: '%s'", action)
}

// upload sends a local file to a pre-signed URL with PUT.
func (e *Executor) upload(ctx context.Context, start time.Time, props *property.Bag) executor.Result {
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	sourcePath, _ := props.String("source_path", "")
	uploadURL, _ := props.String("upload_url", "")
	if sourcePath == "" || uploadURL == "" {
		return executor.Failed(start, "upload requires 'source_path' and 'upload_url'")
	}

	file, err := os.Open(sourcePath)
	if err != nil {
		return executor.Failed(start, "failed to open source file '%s': %v", sourcePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return executor.Failed(start, "failed to get file stats for '%s': %v", sourcePath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, file)
	if err != nil {
		return executor.Failed(start, "failed to create S3 upload request: %v", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(sourcePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading file to S3.", "source", sourcePath, "size", stat.Size(), "contentType", contentType)

	resp, err := e.Client.Do(req)
	if err != nil {
		return executor.Failed(start, "failed to execute S3 upload request: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	out := executor.Data{
		"status":      cty.StringVal(resp.Status),
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"bytes":       cty.NumberIntVal(stat.Size()),
		"path":        cty.StringVal(sourcePath),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res := executor.Failed(start, "S3 upload failed with status: %s", resp.Status)
		res.Output = out
		return res
	}

	logger.Info("Successfully uploaded file.", "status", resp.Status)
	return executor.Succeeded(start, out)
}

// download fetches a pre-signed URL with GET into a local file.
func (e *Executor) download(ctx context.Context, start time.Time, props *property.Bag) executor.Result {
	logger := ctxlog.FromContext(ctx).With("action", "download")

	downloadURL, _ := props.String("download_url", "")
	destPath, _ := props.String("dest_path", "")
	if downloadURL == "" || destPath == "" {
		return executor.Failed(start, "download requires 'download_url' and 'dest_path'")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return executor.Failed(start, "failed to create S3 download request: %v", err)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return executor.Failed(start, "failed to execute S3 download request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res := executor.Failed(start, "S3 download failed with status: %s", resp.Status)
		res.Output = executor.Data{
			"status":      cty.StringVal(resp.Status),
			"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		}
		return res
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return executor.Failed(start, "failed to create directory for '%s': %v", destPath, err)
	}
	file, err := os.Create(destPath)
	if err != nil {
		return executor.Failed(start, "failed to create destination file '%s': %v", destPath, err)
	}
	n, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		return executor.Failed(start, "failed to write '%s': %v", destPath, copyErr)
	}
	if closeErr != nil {
		return executor.Failed(start, "failed to write '%s': %v", destPath, closeErr)
	}

	logger.Info("Successfully downloaded file.", "dest", destPath, "size", n)
	return executor.Succeeded(start, executor.Data{
		"status":      cty.StringVal(resp.Status),
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"bytes":       cty.NumberIntVal(n),
		"path":        cty.StringVal(destPath),
	})
}

