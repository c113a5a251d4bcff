package ports

// Frontend is a long-running intake surface (HTTP API, SMTP filter) that
// feeds requests into the scan service
type Frontend interface {
	// Name identifies the frontend in logs
	Name() string
	// Start begins serving in the background
	Start() error
	// Stop shuts the frontend down, waiting for in-flight requests
	Stop() error
}
