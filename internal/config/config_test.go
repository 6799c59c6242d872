package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	e, err := Load(envOf(map[string]string{
		"ACCESS_MODE":               "groups",
		"AZURE_STORAGE_ACCOUNT_KEY": "c2VjcmV0",
	}))
	require.NoError(t, err)

	assert.Equal(t, ModeGroups, e.AccessMode)
	assert.Equal(t, BackendAzure, e.StorageBackend)
	assert.Equal(t, "projectexplorerfiles", e.AccountName)
	assert.Equal(t, "project-files", e.Container)
	assert.Equal(t, "@virginia.edu", e.EmailDomain)
	assert.Equal(t, "FBS_StaffAll", e.StaffGroup)
	assert.Equal(t, "FBS_Community", e.CommunityGroup)
	assert.Equal(t, DefaultNetworks, e.AllowedNetworks)
	assert.True(t, e.DiagnosticGET)
	assert.Equal(t, "project-files", e.ContainerName())
	assert.Equal(t, "projectexplorerfiles", e.StorageAccount())
}

func TestLoadRequiresAccessMode(t *testing.T) {
	_, err := Load(envOf(map[string]string{"AZURE_STORAGE_ACCOUNT_KEY": "c2VjcmV0"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessMode")
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	_, err := Load(envOf(map[string]string{
		"ACCESS_MODE":               "hybrid",
		"AZURE_STORAGE_ACCOUNT_KEY": "c2VjcmV0",
	}))
	require.Error(t, err)
}

func TestLoadAzureNeedsKey(t *testing.T) {
	_, err := Load(envOf(map[string]string{"ACCESS_MODE": "email"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccountKey")
}

func TestLoadS3(t *testing.T) {
	e, err := Load(envOf(map[string]string{
		"ACCESS_MODE":     "network",
		"STORAGE_BACKEND": "S3",
		"S3_BUCKET":       "explorer-files",
		"AWS_REGION":      "us-west-2",
	}))
	require.NoError(t, err)
	assert.Equal(t, "explorer-files", e.ContainerName())
	assert.Equal(t, "s3:us-west-2", e.StorageAccount())
}

func TestLoadS3NeedsBucket(t *testing.T) {
	_, err := Load(envOf(map[string]string{"ACCESS_MODE": "network", "STORAGE_BACKEND": "s3"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bucket")
}

func TestLoadNetworkList(t *testing.T) {
	e, err := Load(envOf(map[string]string{
		"ACCESS_MODE":               "network",
		"AZURE_STORAGE_ACCOUNT_KEY": "c2VjcmV0",
		"ALLOWED_NETWORKS":          " 10.0.0.0/8, ,192.168.0.0/16 ",
		"DIAGNOSTIC_GET":            "false",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16"}, e.AllowedNetworks)
	assert.False(t, e.DiagnosticGET)
}

func TestLoadRejectsBadCIDR(t *testing.T) {
	_, err := Load(envOf(map[string]string{
		"ACCESS_MODE":               "network",
		"AZURE_STORAGE_ACCOUNT_KEY": "c2VjcmV0",
		"ALLOWED_NETWORKS":          "10.0.0.0/40",
	}))
	require.Error(t, err)
}

func TestLoadRejectsDomainWithoutAt(t *testing.T) {
	_, err := Load(envOf(map[string]string{
		"ACCESS_MODE":               "email",
		"AZURE_STORAGE_ACCOUNT_KEY": "c2VjcmV0",
		"EMAIL_DOMAIN":              "virginia.edu",
	}))
	require.Error(t, err)
}
