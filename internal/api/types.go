// Package api contains types for the API requests and responses.
package api

// DownloadRequest represents the request payload for a signed download URL.
type DownloadRequest struct {
	File string `json:"file"`
}

// DownloadResponse represents the response payload containing the signed URL.
type DownloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
	ExpiresIn   int    `json:"expiresIn"`
	Filename    string `json:"filename"`
	Subject     string `json:"subject"`
}

// StatusResponse answers a diagnostic GET.
type StatusResponse struct {
	Message   string `json:"message"`
	Method    string `json:"method"`
	Timestamp string `json:"timestamp"`
}

// User is the identity summary in a roles response.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// RolesResponse reports the caller's groups and download access.
type RolesResponse struct {
	User              User     `json:"user"`
	Groups            []string `json:"groups"`
	Roles             []string `json:"roles"`
	AccessLevel       string   `json:"accessLevel"`
	HasDownloadAccess bool     `json:"hasDownloadAccess"`
	Timestamp         string   `json:"timestamp"`
}

// NetworkTest is the allow-list result for one candidate address.
type NetworkTest struct {
	IsValid   bool            `json:"isValid"`
	Ranges    map[string]bool `json:"ranges"`
	InNetwork bool            `json:"inNetwork"`
}

// DebugIPResponse reports how the caller's address was derived and checked.
type DebugIPResponse struct {
	Timestamp    string                 `json:"timestamp"`
	ForwardedFor string                 `json:"forwardedFor,omitempty"`
	RealIP       string                 `json:"realIp,omitempty"`
	SourceIP     string                 `json:"sourceIp,omitempty"`
	ClientIPs    []string               `json:"clientIPs"`
	SelectedIP   string                 `json:"selectedIP"`
	Loopback     bool                   `json:"loopback"`
	Networks     []string               `json:"allowedNetworks"`
	Tests        map[string]NetworkTest `json:"networkTests"`
}

// StorageStatus reports a storage connectivity check.
type StorageStatus struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	Provider        string `json:"provider"`
	AccountName     string `json:"accountName"`
	ContainerName   string `json:"containerName"`
	ContainerExists bool   `json:"containerExists"`
	Timestamp       string `json:"timestamp"`
}
