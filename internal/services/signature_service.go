package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"mailroom/internal/common"
	"mailroom/internal/models"
	"mailroom/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Signature payload kinds.
const (
	SignatureDataURI = "data-uri"
	SignatureURL     = "url"
	SignatureObject  = "object"
)

var dataURIPattern = regexp.MustCompile(`^data:image/([a-zA-Z0-9.+-]+);base64,(.+)$`)

// ClassifySignature reports which kind of payload data is.
func ClassifySignature(data string) (string, error) {
	switch {
	case dataURIPattern.MatchString(data):
		return SignatureDataURI, nil
	case strings.HasPrefix(data, "http://"), strings.HasPrefix(data, "https://"):
		return SignatureURL, nil
	case strings.HasPrefix(data, ObjectScheme):
		return SignatureObject, nil
	default:
		return "", errors.New("unsupported signature format")
	}
}

// DecodeDataURI returns the image subtype and decoded bytes of a base64
// image data URI.
func DecodeDataURI(data string) (subtype string, body []byte, err error) {
	m := dataURIPattern.FindStringSubmatch(data)
	if m == nil {
		return "", nil, errors.New("not an image data uri")
	}
	body, err = base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return m[1], body, nil
}

// SignatureImage is what the image endpoint serves: either a redirect
// target or inline bytes.
type SignatureImage struct {
	RedirectURL string
	ContentType string
	Body        []byte
}

// OffloadConfig enables storing data URI signatures in object storage.
type OffloadConfig struct {
	Enabled       bool
	Bucket        string
	PresignExpiry time.Duration
}

type SignatureService interface {
	// Persist stores data once per owner and returns the ids of the rows
	// written. Failures are logged and skipped.
	Persist(ctx context.Context, ownerIDs []int64, data string) []int64
	Get(ctx context.Context, id int64) (*models.Signature, error)
	Image(ctx context.Context, id int64) (*SignatureImage, error)
	Delete(ctx context.Context, id int64) error
}

type signatureService struct {
	store   repositories.PickupStore
	minio   MinioService
	offload OffloadConfig
	logger  *zap.Logger
}

// NewSignatureService builds the service; minio may be nil when offload is
// disabled.
func NewSignatureService(store repositories.PickupStore, minio MinioService, offload OffloadConfig, logger *zap.Logger) SignatureService {
	if minio == nil {
		offload.Enabled = false
	}
	return &signatureService{store: store, minio: minio, offload: offload, logger: logger}
}

func (s *signatureService) Persist(ctx context.Context, ownerIDs []int64, data string) []int64 {
	ids := make([]int64, 0, len(ownerIDs))
	for _, owner := range ownerIDs {
		payload, objectKey := s.prepare(ctx, owner, data)

		id, err := s.store.SaveSignature(ctx, models.SignatureWrite{OwnerID: owner, Data: payload})
		if err != nil {
			s.logger.Error("failed to save signature",
				zap.Int64("owner_id", owner),
				zap.String("schema", string(s.store.Variant())),
				zap.Error(err),
			)
			if objectKey != "" {
				s.removeObject(ctx, s.offload.Bucket, objectKey)
			}
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// prepare uploads a data URI when offload is on. On upload failure the
// payload is stored inline.
func (s *signatureService) prepare(ctx context.Context, owner int64, data string) (payload, objectKey string) {
	if !s.offload.Enabled {
		return data, ""
	}
	subtype, body, err := DecodeDataURI(data)
	if err != nil {
		return data, ""
	}

	key := path.Join("signatures", time.Now().UTC().Format("2006/01"), uuid.NewString()+"."+extensionFor(subtype))
	err = s.minio.UploadImage(ctx, s.offload.Bucket, key, "image/"+subtype, bytes.NewReader(body), int64(len(body)))
	if err != nil {
		s.logger.Warn("signature offload failed, storing inline", zap.Int64("owner_id", owner), zap.Error(err))
		return data, ""
	}
	return ObjectURL(s.offload.Bucket, key), key
}

func extensionFor(subtype string) string {
	switch subtype {
	case "jpeg":
		return "jpg"
	case "svg+xml":
		return "svg"
	default:
		return subtype
	}
}

func (s *signatureService) Get(ctx context.Context, id int64) (*models.Signature, error) {
	sig, err := s.store.GetSignature(ctx, id)
	if err != nil {
		return nil, repoError(err, "signature", "load signature")
	}
	sig.Kind, _ = ClassifySignature(sig.SignatureData)
	return sig, nil
}

func (s *signatureService) Image(ctx context.Context, id int64) (*SignatureImage, error) {
	sig, err := s.store.GetSignature(ctx, id)
	if err != nil {
		return nil, repoError(err, "signature", "load signature")
	}

	kind, err := ClassifySignature(sig.SignatureData)
	if err != nil {
		return nil, common.NewValidationError("signature is stored in an unsupported format")
	}

	switch kind {
	case SignatureURL:
		return &SignatureImage{RedirectURL: sig.SignatureData}, nil
	case SignatureObject:
		if s.minio == nil {
			return nil, common.NewUnexpectedError("resolve signature object", errors.New("object storage is not configured"))
		}
		bucket, key, err := ParseObjectURL(sig.SignatureData)
		if err != nil {
			return nil, common.NewValidationError("signature is stored in an unsupported format")
		}
		u, err := s.minio.GetPresignedURL(ctx, bucket, key, s.offload.PresignExpiry)
		if err != nil {
			return nil, common.NewUnexpectedError("presign signature object", err)
		}
		return &SignatureImage{RedirectURL: u}, nil
	default:
		subtype, body, err := DecodeDataURI(sig.SignatureData)
		if err != nil {
			return nil, common.NewValidationError("signature image data is corrupt")
		}
		return &SignatureImage{ContentType: "image/" + subtype, Body: body}, nil
	}
}

// Delete removes the signature and clears the owner's signature flag.
// Offloaded objects are removed best-effort after the row is gone.
func (s *signatureService) Delete(ctx context.Context, id int64) error {
	sig, err := s.store.DeleteSignature(ctx, id)
	if err != nil {
		return repoError(err, "signature", "delete signature")
	}
	if strings.HasPrefix(sig.SignatureData, ObjectScheme) && s.minio != nil {
		if bucket, key, err := ParseObjectURL(sig.SignatureData); err == nil {
			s.removeObject(ctx, bucket, key)
		}
	}
	return nil
}

func (s *signatureService) removeObject(ctx context.Context, bucket, key string) {
	if err := s.minio.DeleteImage(ctx, bucket, key); err != nil {
		s.logger.Warn("failed to remove signature object", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
	}
}
