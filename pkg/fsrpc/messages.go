package fsrpc

// Messages are XDR-encoded plain structs. Optional scalars are expressed as
// a presence flag followed by the value.

type AuthenticateRequest struct {
	ClientID string
}

type AuthenticateResponse struct {
	Success              bool
	Message              string
	AvailableDirectories []string
}

type HealthCheckRequest struct{}

type HealthCheckResponse struct {
	Healthy       bool
	UptimeSeconds uint64
	Version       string
	Message       string
}

type StatRequest struct {
	Path string
}

// FileMetadata describes a file or directory. Times are Unix seconds.
type FileMetadata struct {
	Name         string
	Size         uint64
	IsDirectory  bool
	Permissions  string
	ModifiedTime int64
	CreatedTime  int64
}

type ListRequest struct {
	Path string
}

type FileEntry struct {
	Name         string
	IsDirectory  bool
	Size         uint64
	ModifiedTime int64
	Permissions  string
}

type ListResponse struct {
	Entries []FileEntry
}

type ReadRequest struct {
	Path string

	HasOffset bool
	Offset    uint64

	HasLength bool
	Length    uint64
}

// DataChunk is one segment of a streamed file payload, used in both
// directions.
type DataChunk struct {
	Path   string
	Data   []byte
	Offset uint64
	IsLast bool
}

type WriteResponse struct {
	Success      bool
	Message      string
	BytesWritten uint64
}

type DeleteRequest struct {
	Path string
}

type DeleteResponse struct {
	Success bool
	Message string
}
