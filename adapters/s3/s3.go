// Package s3 stores deposit receipt images in an S3 bucket and hands
// back the public URL that gets attached to the deposit request.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type ReceiptUploader struct {
	// Client is the S3 client.
	Client *s3.Client
	// Bucket is the name of the bucket receipts are written to.
	Bucket string
	// PublicEndpoint is the public base URL of the bucket.
	PublicEndpoint *url.URL
}

func NewReceiptUploader(client *s3.Client, bucket, publicBaseURL string) (*ReceiptUploader, error) {
	const op = "NewReceiptUploader"
	publicEndpoint, err := url.Parse(publicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse public base URL, err=%w", op, err)
	}
	return &ReceiptUploader{Client: client, Bucket: bucket, PublicEndpoint: publicEndpoint}, nil
}

// ReceiptKey builds the object key for a deposit request's receipt.
// One receipt per request, so re-uploading overwrites the previous one.
func ReceiptKey(depositID uuid.UUID, extension string) string {
	return fmt.Sprintf("receipts/%s.%s", depositID, extension)
}

// UploadReceipt writes the image under the given key and returns the
// public URL it is reachable at.
func (u *ReceiptUploader) UploadReceipt(ctx context.Context, key, contentType string, content []byte) (string, error) {
	const op = "UploadReceipt"
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to upload receipt to S3, err=%w", op, err)
	}
	uri := *u.PublicEndpoint
	uri.Path = key
	return uri.String(), nil
}
