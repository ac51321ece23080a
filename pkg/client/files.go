package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/Sternrassler/ninox-connector/pkg/ninox"
)

// File is a downloaded attachment.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Upload is an attachment to store on a record.
type Upload struct {
	Name     string
	MimeType string
	Data     []byte

	// Field names the image or file field the attachment is bound to.
	// Empty stores it as a plain record attachment.
	Field string
}

// ListFiles returns the attachments of a record.
func (c *Client) ListFiles(ctx context.Context, table ninox.TableRef, id ninox.RecordID) ([]ninox.FileInfo, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	var files []ninox.FileInfo
	err := c.doJSON(ctx, request{
		op:       "files.list",
		method:   http.MethodGet,
		endpoint: table.FilesPath(id),
	}, &files)
	if err != nil {
		return nil, err
	}
	return files, nil
}

// DownloadFile fetches the content of one attachment.
func (c *Client) DownloadFile(ctx context.Context, table ninox.TableRef, id ninox.RecordID, name string) (*File, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("file name is required")
	}

	resp, err := c.do(ctx, request{
		op:       "files.get",
		method:   http.MethodGet,
		endpoint: table.FilePath(id, name),
		accept:   "*/*",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", name, err)
	}

	mimeType := "application/octet-stream"
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mimeType = mt
		}
	}

	return &File{Name: name, MimeType: mimeType, Data: data}, nil
}

// UploadFile stores an attachment as multipart form data: the content in
// the "file" part and the optional target field in "fieldName".
func (c *Client) UploadFile(ctx context.Context, table ninox.TableRef, id ninox.RecordID, up Upload) error {
	if err := table.Validate(); err != nil {
		return err
	}
	if up.Name == "" {
		return fmt.Errorf("file name is required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": up.Name,
	}))
	mimeType := up.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(up.Data); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if up.Field != "" {
		if err := w.WriteField("fieldName", up.Field); err != nil {
			return fmt.Errorf("write fieldName: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	return c.doJSON(ctx, request{
		op:          "files.upload",
		method:      http.MethodPost,
		endpoint:    table.FilesPath(id),
		body:        &buf,
		contentType: w.FormDataContentType(),
	}, nil)
}

// DeleteFile removes one attachment.
func (c *Client) DeleteFile(ctx context.Context, table ninox.TableRef, id ninox.RecordID, name string) error {
	if err := table.Validate(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("file name is required")
	}

	return c.doJSON(ctx, request{
		op:       "files.delete",
		method:   http.MethodDelete,
		endpoint: table.FilePath(id, name),
	}, nil)
}
