package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bert42/fileserver/pkg/fsrpc"
)

const timeLayout = "2006-01-02 15:04:05 UTC"

type sessionView struct {
	ClientID    string   `json:"client_id" yaml:"client_id"`
	Message     string   `json:"message" yaml:"message"`
	Directories []string `json:"directories" yaml:"directories"`
}

type healthView struct {
	Healthy       bool   `json:"healthy" yaml:"healthy"`
	UptimeSeconds uint64 `json:"uptime_seconds" yaml:"uptime_seconds"`
	Version       string `json:"version" yaml:"version"`
	Message       string `json:"message" yaml:"message"`
}

func newHealthView(r *fsrpc.HealthCheckResponse) healthView {
	return healthView{Healthy: r.Healthy, UptimeSeconds: r.UptimeSeconds, Version: r.Version, Message: r.Message}
}

func (h healthView) KeyValues() [][2]string {
	status := "Unhealthy"
	if h.Healthy {
		status = "Healthy"
	}
	return [][2]string{
		{"Status", status},
		{"Uptime", fmt.Sprintf("%d seconds", h.UptimeSeconds)},
		{"Version", h.Version},
		{"Message", h.Message},
	}
}

type metadataView struct {
	Path        string    `json:"path" yaml:"path"`
	Name        string    `json:"name" yaml:"name"`
	Size        uint64    `json:"size" yaml:"size"`
	Type        string    `json:"type" yaml:"type"`
	Permissions string    `json:"permissions" yaml:"permissions"`
	Modified    time.Time `json:"modified" yaml:"modified"`
	Created     time.Time `json:"created" yaml:"created"`
}

func newMetadataView(path string, m *fsrpc.FileMetadata) metadataView {
	return metadataView{
		Path:        path,
		Name:        m.Name,
		Size:        m.Size,
		Type:        entryType(m.IsDirectory),
		Permissions: m.Permissions,
		Modified:    time.Unix(m.ModifiedTime, 0).UTC(),
		Created:     time.Unix(m.CreatedTime, 0).UTC(),
	}
}

func (m metadataView) KeyValues() [][2]string {
	return [][2]string{
		{"Name", m.Name},
		{"Size", fmt.Sprintf("%d bytes", m.Size)},
		{"Type", m.Type},
		{"Permissions", m.Permissions},
		{"Modified", m.Modified.Format(timeLayout)},
		{"Created", m.Created.Format(timeLayout)},
	}
}

type entryView struct {
	Name        string    `json:"name" yaml:"name"`
	Type        string    `json:"type" yaml:"type"`
	Size        uint64    `json:"size" yaml:"size"`
	Permissions string    `json:"permissions" yaml:"permissions"`
	Modified    time.Time `json:"modified" yaml:"modified"`
}

// entryList renders a directory listing, directories first as returned by
// the server.
type entryList []entryView

func newEntryList(entries []fsrpc.FileEntry) entryList {
	out := make(entryList, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{
			Name:        e.Name,
			Type:        entryType(e.IsDirectory),
			Size:        e.Size,
			Permissions: e.Permissions,
			Modified:    time.Unix(e.ModifiedTime, 0).UTC(),
		})
	}
	return out
}

func (l entryList) Headers() []string {
	return []string{"Name", "Type", "Size", "Permissions", "Modified"}
}

func (l entryList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		size := "-"
		if e.Type == "File" {
			size = strconv.FormatUint(e.Size, 10) + " bytes"
		}
		rows = append(rows, []string{e.Name, e.Type, size, e.Permissions, e.Modified.Format("2006-01-02 15:04")})
	}
	return rows
}

type writeView struct {
	Path         string `json:"path" yaml:"path"`
	BytesWritten uint64 `json:"bytes_written" yaml:"bytes_written"`
	Message      string `json:"message" yaml:"message"`
}

type deleteView struct {
	Path    string `json:"path" yaml:"path"`
	Message string `json:"message" yaml:"message"`
}

type readView struct {
	Path      string `json:"path" yaml:"path"`
	BytesRead uint64 `json:"bytes_read" yaml:"bytes_read"`
	Output    string `json:"output,omitempty" yaml:"output,omitempty"`
}

func entryType(dir bool) string {
	if dir {
		return "Directory"
	}
	return "File"
}
