// Package server provides the HTTP status surface of the archiver.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// StatusResponse is the HTTP response for the status endpoint.
type StatusResponse struct {
	// RunID identifies the current process run.
	RunID string `json:"run_id"`
	// State is the current cycle state.
	State string `json:"state"`
	// ArchivedFiles is the number of files held by the retention ledger.
	ArchivedFiles int `json:"archived_files"`
	// MaxFiles is the retention capacity.
	MaxFiles int `json:"max_files"`
	// Uptime is the time since the server was created, in seconds.
	Uptime float64 `json:"uptime_seconds"`
}

// ArchivesQuery holds the query parameters of the archives endpoint.
type ArchivesQuery struct {
	// Limit caps the result to the newest files. Zero returns all.
	Limit int `validate:"gte=0,lte=1000"`
}

// ArchiveResponse describes one archived file.
type ArchiveResponse struct {
	// Name is the file name inside the archive directory.
	Name string `json:"name"`
	// Size is the file size in bytes, omitted when the file cannot be read.
	Size int64 `json:"size,omitempty"`
}

// ArchivesResponse is the HTTP response for the archives endpoint.
type ArchivesResponse struct {
	Files []ArchiveResponse `json:"files"`
	Total int               `json:"total"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
