package gateway

import (
	"context"
	"path/filepath"

	"github.com/bert42/fileserver/pkg/access"
	"github.com/bert42/fileserver/pkg/fserrors"
	"github.com/bert42/fileserver/pkg/fsrpc"
)

// Stat returns metadata for a file or directory.
func (g *Gateway) Stat(ctx context.Context, req *fsrpc.StatRequest) (*fsrpc.FileMetadata, error) {
	ctx, c := g.begin(ctx, "Stat", req.Path)

	resolved, err := g.access.ResolveVirtual(req.Path, access.Read)
	if err != nil {
		return nil, c.end(ctx, err)
	}

	md, err := g.store.Stat(ctx, resolved.Path)
	if err != nil {
		return nil, c.end(ctx, err)
	}

	return &fsrpc.FileMetadata{
		Name:         md.Name,
		Size:         md.Size,
		IsDirectory:  md.IsDirectory,
		Permissions:  md.Permissions,
		ModifiedTime: md.ModifiedTime,
		CreatedTime:  md.CreatedTime,
	}, c.end(ctx, nil)
}

// List returns the children of a directory, directories first.
func (g *Gateway) List(ctx context.Context, req *fsrpc.ListRequest) (*fsrpc.ListResponse, error) {
	ctx, c := g.begin(ctx, "List", req.Path)

	resolved, err := g.access.ResolveVirtual(req.Path, access.Read)
	if err != nil {
		return nil, c.end(ctx, err)
	}

	entries, err := g.store.List(ctx, resolved.Path)
	if err != nil {
		return nil, c.end(ctx, err)
	}

	resp := &fsrpc.ListResponse{Entries: make([]fsrpc.FileEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, fsrpc.FileEntry{
			Name:         e.Name,
			IsDirectory:  e.IsDirectory,
			Size:         e.Size,
			ModifiedTime: e.ModifiedTime,
			Permissions:  e.Permissions,
		})
	}
	return resp, c.end(ctx, nil)
}

// Delete removes a file or, recursively, a directory. It requires write
// permission on the root.
func (g *Gateway) Delete(ctx context.Context, req *fsrpc.DeleteRequest) (*fsrpc.DeleteResponse, error) {
	ctx, c := g.begin(ctx, "Delete", req.Path)

	resolved, err := g.access.ResolveVirtual(req.Path, access.Write)
	if err != nil {
		return nil, c.end(ctx, err)
	}

	// "uploads", "uploads/" and "uploads/." all name the root itself.
	if filepath.Clean(filepath.FromSlash(resolved.Relative)) == "." {
		return nil, c.end(ctx, fserrors.New(fserrors.InvalidPath, "Cannot delete a directory root").WithPath(req.Path))
	}

	if err := g.store.Delete(ctx, resolved.Path); err != nil {
		return nil, c.end(ctx, err)
	}

	return &fsrpc.DeleteResponse{
		Success: true,
		Message: "File deleted successfully",
	}, c.end(ctx, nil)
}
