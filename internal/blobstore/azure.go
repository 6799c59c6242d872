package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"
)

// AzureBackend signs blob SAS URLs with a storage account shared key.
type AzureBackend struct {
	cred      *azblob.SharedKeyCredential
	container *container.Client
	account   string
	name      string
	protocol  sas.Protocol
}

// NewAzure builds a backend for one container. endpoint may be empty, in
// which case the public blob endpoint for account is used.
func NewAzure(account, accountKey, containerName, endpoint string) (*AzureBackend, error) {
	cred, err := azblob.NewSharedKeyCredential(account, accountKey)
	if err != nil {
		// The SDK's message may quote the key; do not wrap it.
		return nil, fmt.Errorf("azure: invalid shared key credential for account %s", account)
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	}
	svc, err := service.NewClientWithSharedKeyCredential(endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: service client %s: %w", endpoint, err)
	}
	protocol := sas.ProtocolHTTPS
	if strings.HasPrefix(endpoint, "http://") {
		protocol = sas.ProtocolHTTPSandHTTP // local emulator
	}
	return &AzureBackend{
		cred:      cred,
		container: svc.NewContainerClient(containerName),
		account:   account,
		name:      containerName,
		protocol:  protocol,
	}, nil
}

// Target implements Backend.
func (a *AzureBackend) Target() Target {
	return Target{Provider: "azure", Account: a.account, Container: a.name}
}

// Exists implements Backend with a blob properties request.
func (a *AzureBackend) Exists(ctx context.Context, key ObjectKey) (bool, error) {
	_, err := a.container.NewBlobClient(string(key)).GetProperties(ctx, nil)
	switch {
	case err == nil:
		return true, nil
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("azure: get properties %s/%s: %w", a.name, key, err)
	}
}

// Check implements Store with a container properties request.
func (a *AzureBackend) Check(ctx context.Context) error {
	_, err := a.container.GetProperties(ctx, nil)
	switch {
	case err == nil:
		return nil
	case bloberror.HasCode(err, bloberror.ContainerNotFound):
		return fmt.Errorf("azure: container %s not found", a.name)
	default:
		return fmt.Errorf("azure: get container properties %s: %w", a.name, err)
	}
}

// Sign implements Backend. The signature grants read on exactly one blob.
func (a *AzureBackend) Sign(_ context.Context, req SignRequest) (string, error) {
	perms := sas.BlobPermissions{Read: true}
	qp, err := sas.BlobSignatureValues{
		Protocol:      a.protocol,
		StartTime:     req.Start.UTC(),
		ExpiryTime:    req.Expiry.UTC(),
		Permissions:   perms.String(),
		ContainerName: a.name,
		BlobName:      string(req.Key),
		CacheControl:  grantCacheControl(req.GrantID),
	}.SignWithSharedKey(a.cred)
	if err != nil {
		return "", fmt.Errorf("azure: sign %s/%s: %w", a.name, req.Key, err)
	}
	return a.blobURL(req.Key) + "?" + qp.Encode(), nil
}

func (a *AzureBackend) blobURL(key ObjectKey) string {
	return strings.TrimSuffix(a.container.URL(), "/") + "/" + escapeKey(key)
}

// escapeKey escapes each path segment, keeping the separators.
func escapeKey(key ObjectKey) string {
	segs := strings.Split(string(key), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// grantCacheControl binds the grant id into the signed response headers, so
// two grants issued within the same second still carry distinct signatures.
func grantCacheControl(grantID string) string {
	if grantID == "" {
		return "private"
	}
	return "private, grant=" + grantID
}
