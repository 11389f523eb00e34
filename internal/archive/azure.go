package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sirupsen/logrus"
)

// Archiver stores raw page snapshots captured during a discovery run so
// extraction results can be audited later.
type Archiver interface {
	ArchiveSnapshot(ctx context.Context, sourceID string, content string) error
}

// AzureArchive keeps snapshots in Azure Blob Storage, one blob per
// source per scan.
type AzureArchive struct {
	client        *azblob.Client
	containerName string
}

// Ensure AzureArchive implements Archiver
var _ Archiver = (*AzureArchive)(nil)

// NewAzureArchive creates a snapshot archive backed by Azure Blob
// Storage, authenticating with the default credential chain.
func NewAzureArchive(accountName, containerName string) (*AzureArchive, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	archive := &AzureArchive{
		client:        client,
		containerName: containerName,
	}

	if err := archive.ensureContainer(); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}

	return archive, nil
}

func (a *AzureArchive) ensureContainer() error {
	ctx := context.Background()

	_, err := a.client.CreateContainer(ctx, a.containerName, nil)
	if err != nil {
		if !strings.Contains(err.Error(), "ContainerAlreadyExists") {
			return fmt.Errorf("failed to create container: %w", err)
		}
		logrus.Debugf("Container %s already exists", a.containerName)
	} else {
		logrus.Infof("Created container %s", a.containerName)
	}

	return nil
}

// ArchiveSnapshot uploads the scraped content of one source, keyed by
// source ID and scan time.
func (a *AzureArchive) ArchiveSnapshot(ctx context.Context, sourceID string, content string) error {
	blobName := fmt.Sprintf("source-%s/%s.md", sourceID, time.Now().UTC().Format("2006-01-02T15-04-05"))

	_, err := a.client.UploadBuffer(ctx, a.containerName, blobName, []byte(content), &azblob.UploadBufferOptions{
		BlockSize:   int64(1024 * 1024),
		Concurrency: 3,
	})

	if err != nil {
		return fmt.Errorf("failed to upload snapshot %s: %w", blobName, err)
	}

	logrus.Debugf("Archived page snapshot %s", blobName)
	return nil
}
