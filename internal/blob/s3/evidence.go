package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

// EvidenceArchiver implements domain.EvidenceArchiver by uploading each
// settlement's evidence blob as a JSON object under
// evidence/{marketId}/{responseId}.json.
type EvidenceArchiver struct {
	uploader *manager.Uploader
	bucket   string
}

// NewEvidenceArchiver creates an archiver over the given client.
func NewEvidenceArchiver(c *Client) *EvidenceArchiver {
	return &EvidenceArchiver{
		uploader: manager.NewUploader(c.s3),
		bucket:   c.bucket,
	}
}

func evidenceKey(marketID uint64, responseID string) string {
	return "evidence/" + strconv.FormatUint(marketID, 10) + "/" + responseID + ".json"
}

// Archive uploads the evidence payload and returns the object key.
func (a *EvidenceArchiver) Archive(ctx context.Context, marketID uint64, responseID string, evidence any) (string, error) {
	data, err := json.MarshalIndent(evidence, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal evidence for market %d: %w", marketID, err)
	}

	key := evidenceKey(marketID, responseID)
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: upload evidence %s: %w", key, err)
	}
	return key, nil
}

// Compile-time interface check.
var _ domain.EvidenceArchiver = (*EvidenceArchiver)(nil)
