// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/appliedpolicy/project-explorer/internal/validate"
)

// AccessMode selects the single access policy a deployment enforces.
type AccessMode string

// Possible values for AccessMode
const (
	ModeGroups  AccessMode = "groups"
	ModeEmail   AccessMode = "email"
	ModeNetwork AccessMode = "network"
)

// Storage backends.
const (
	BackendAzure = "azure"
	BackendS3    = "s3"
)

// SignedURLTTL is the fixed validity window of every issued download URL.
const SignedURLTTL = 3600 * time.Second

// DefaultNetworks is the institutional network allow-list.
var DefaultNetworks = []string{
	"137.54.0.0/16",
	"172.16.0.0/12",
	"128.143.0.0/16",
	"199.111.0.0/16",
}

// Env holds the configuration values for the application. It is built once
// at startup and passed by value; nothing reads the environment afterwards.
type Env struct {
	AccessMode AccessMode `validate:"required,oneof=groups email network"`

	StorageBackend string `validate:"required,oneof=azure s3"`
	AccountName    string `validate:"required_if=StorageBackend azure"`
	AccountKey     string `validate:"required_if=StorageBackend azure"`
	Container      string `validate:"required_if=StorageBackend azure"`
	BlobEndpoint   string // optional, e.g. Azurite

	Region      string `validate:"required"`
	Bucket      string `validate:"required_if=StorageBackend s3"`
	AWSEndpoint string // optional, e.g. LocalStack

	AuditTable string // optional DynamoDB table for download records

	StaffGroup      string   `validate:"required"`
	CommunityGroup  string   `validate:"required"`
	EmailDomain     string   `validate:"required,startswith=@"`
	AllowedNetworks []string `validate:"dive,cidrv4"`

	DiagnosticGET bool
	Port          string `validate:"required,numeric"`
}

// MustLoad reads the environment variables and returns an Env struct.
func MustLoad() Env {
	e, err := Load(os.Getenv)
	if err != nil {
		panic(err)
	}
	return e
}

// Load builds an Env from getenv and validates it.
func Load(getenv func(string) string) (Env, error) {
	r := reader{getenv: getenv}
	e := Env{
		AccessMode:      AccessMode(strings.ToLower(r.get("ACCESS_MODE", ""))),
		StorageBackend:  strings.ToLower(r.get("STORAGE_BACKEND", BackendAzure)),
		AccountName:     r.get("AZURE_STORAGE_ACCOUNT_NAME", "projectexplorerfiles"),
		AccountKey:      r.get("AZURE_STORAGE_ACCOUNT_KEY", ""),
		Container:       r.get("AZURE_STORAGE_CONTAINER_NAME", "project-files"),
		BlobEndpoint:    r.get("AZURE_STORAGE_ENDPOINT", ""),
		Region:          r.get("AWS_REGION", "us-east-1"),
		Bucket:          r.get("S3_BUCKET", ""),
		AWSEndpoint:     r.get("AWS_ENDPOINT_URL", ""),
		AuditTable:      r.get("AUDIT_TABLE", ""),
		StaffGroup:      r.get("STAFF_GROUP", "FBS_StaffAll"),
		CommunityGroup:  r.get("COMMUNITY_GROUP", "FBS_Community"),
		EmailDomain:     strings.ToLower(r.get("EMAIL_DOMAIN", "@virginia.edu")),
		AllowedNetworks: r.list("ALLOWED_NETWORKS", DefaultNetworks),
		DiagnosticGET:   r.bool("DIAGNOSTIC_GET", true),
		Port:            r.get("FUNCTIONS_CUSTOMHANDLER_PORT", "8080"),
	}
	if err := validate.Struct(e); err != nil {
		return Env{}, fmt.Errorf("config: %w", err)
	}
	if e.AccessMode == ModeNetwork && len(e.AllowedNetworks) == 0 {
		return Env{}, fmt.Errorf("config: ALLOWED_NETWORKS must not be empty in network mode")
	}
	return e, nil
}

// ContainerName returns the container or bucket the active backend serves.
func (e Env) ContainerName() string {
	if e.StorageBackend == BackendS3 {
		return e.Bucket
	}
	return e.Container
}

// StorageAccount returns a non-secret identifier of the storage account.
func (e Env) StorageAccount() string {
	if e.StorageBackend == BackendS3 {
		return "s3:" + e.Region
	}
	return e.AccountName
}

type reader struct {
	getenv func(string) string
}

// get returns the value of the environment variable k or def if not set.
func (r reader) get(k, def string) string {
	if v := strings.TrimSpace(r.getenv(k)); v != "" {
		return v
	}
	return def
}

func (r reader) bool(k string, def bool) bool {
	b, err := strconv.ParseBool(r.get(k, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return b
}

// list splits a comma separated variable, dropping empty entries.
func (r reader) list(k string, def []string) []string {
	raw := r.get(k, "")
	if raw == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
