package connector

import (
	"context"

	"github.com/Sternrassler/ninox-connector/pkg/client"
	"github.com/Sternrassler/ninox-connector/pkg/ninox"
)

// DefaultBinaryProperty is the input binary uploaded when none is named.
const DefaultBinaryProperty = "data"

type fileRequest struct {
	table ninox.TableRef
	id    ninox.RecordID
	name  string
	item  Item
}

type uploadRequest struct {
	table  ninox.TableRef
	id     ninox.RecordID
	upload client.Upload
}

func fileActions() []Action {
	return []Action{
		newAction("file.list", "List the attachments of a record", buildRecord, sendListFiles, transformListFiles),
		newAction("file.get", "Download an attachment by file name", buildFile, sendDownload, transformDownload),
		newAction("file.upload", "Attach a file to a record", buildUpload, sendUpload, transformSuccess[uploadRequest, struct{}]),
		newAction("file.delete", "Delete an attachment by file name", buildFile, sendDeleteFile, transformSuccess[fileRequest, struct{}]),
	}
}

func buildFile(p Params, item Item) (fileRequest, error) {
	rec, err := buildRecord(p, item)
	if err != nil {
		return fileRequest{}, err
	}
	name, err := requiredString(p, "fileName")
	if err != nil {
		return fileRequest{}, err
	}
	return fileRequest{table: rec.table, id: rec.id, name: name, item: item}, nil
}

func sendListFiles(ctx context.Context, c *Connector, req recordRequest) ([]ninox.FileInfo, error) {
	return c.api.ListFiles(ctx, req.table, req.id)
}

func transformListFiles(_ context.Context, _ *Connector, _ recordRequest, files []ninox.FileInfo) ([]Item, error) {
	items := make([]Item, 0, len(files))
	for _, f := range files {
		item, err := toItem(f, "file")
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func sendDownload(ctx context.Context, c *Connector, req fileRequest) (*client.File, error) {
	return c.api.DownloadFile(ctx, req.table, req.id, req.name)
}

// transformDownload keeps the input item's binaries and adds the file under
// its own name.
func transformDownload(_ context.Context, _ *Connector, req fileRequest, f *client.File) ([]Item, error) {
	out := Item{JSON: map[string]any{}, Binary: make(map[string]*Binary, len(req.item.Binary)+1)}
	for k, v := range req.item.Binary {
		out.Binary[k] = v
	}
	out.Binary[req.name] = &Binary{FileName: f.Name, MimeType: f.MimeType, Data: f.Data}
	return []Item{out}, nil
}

func buildUpload(p Params, item Item) (uploadRequest, error) {
	rec, err := buildRecord(p, item)
	if err != nil {
		return uploadRequest{}, err
	}

	prop, err := optString(p, "binaryPropertyName")
	if err != nil {
		return uploadRequest{}, err
	}
	if prop == "" {
		prop = DefaultBinaryProperty
	}
	bin := item.Binary[prop]
	if bin == nil {
		return uploadRequest{}, &ParamError{Param: "binaryPropertyName", Reason: "no binary data property \"" + prop + "\" exists on item"}
	}

	field, err := optString(p, "attachmentField")
	if err != nil {
		return uploadRequest{}, err
	}

	name := bin.FileName
	if name == "" {
		name = prop
	}

	return uploadRequest{
		table: rec.table,
		id:    rec.id,
		upload: client.Upload{
			Name:     name,
			MimeType: bin.MimeType,
			Data:     bin.Data,
			Field:    field,
		},
	}, nil
}

func sendUpload(ctx context.Context, c *Connector, req uploadRequest) (struct{}, error) {
	return struct{}{}, c.api.UploadFile(ctx, req.table, req.id, req.upload)
}

func sendDeleteFile(ctx context.Context, c *Connector, req fileRequest) (struct{}, error) {
	return struct{}{}, c.api.DeleteFile(ctx, req.table, req.id, req.name)
}
