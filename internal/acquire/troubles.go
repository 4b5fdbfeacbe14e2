package acquire

import (
	"context"
	"errors"

	"github.com/hbomb79/mediagetter/internal/scraper"
	"github.com/hbomb79/mediagetter/internal/staging"
	"github.com/hbomb79/mediagetter/internal/store"
)

// FailureKind is the classification of an error raised by the pipeline.
type FailureKind string

const (
	INVALID_URL          FailureKind = "INVALID_URL"
	NETWORK_FAILURE      FailureKind = "NETWORK_FAILURE"
	EXTRACTION_FAILED    FailureKind = "EXTRACTION_FAILED"
	UNCLASSIFIABLE_MEDIA FailureKind = "UNCLASSIFIABLE_MEDIA"
	DECODE_ERROR         FailureKind = "DECODE_ERROR"
	BETTER_IMAGE_EXISTS  FailureKind = "BETTER_IMAGE_EXISTS"
	FILESYSTEM_FAILURE   FailureKind = "FILESYSTEM_FAILURE"
	CANCELLED            FailureKind = "CANCELLED"
	UNKNOWN_FAILURE      FailureKind = "UNKNOWN_FAILURE"
)

// Classify maps an error returned from Submit to its FailureKind.
func Classify(err error) FailureKind {
	var (
		invalidURL     *scraper.InvalidURLError
		network        *scraper.NetworkError
		extraction     *scraper.ExtractionError
		unclassifiable *scraper.UnclassifiableMediaError
		decode         *store.DecodeError
		better         *store.BetterImageExistsError
		commitFs       *store.FileSystemError
		stagingFs      *staging.FileSystemError
	)

	switch {
	case errors.As(err, &invalidURL), errors.Is(err, ErrIllegalFolder):
		return INVALID_URL
	case errors.As(err, &network):
		return NETWORK_FAILURE
	case errors.As(err, &extraction):
		return EXTRACTION_FAILED
	case errors.As(err, &unclassifiable):
		return UNCLASSIFIABLE_MEDIA
	case errors.As(err, &decode):
		return DECODE_ERROR
	case errors.As(err, &better):
		return BETTER_IMAGE_EXISTS
	case errors.As(err, &commitFs), errors.As(err, &stagingFs):
		return FILESYSTEM_FAILURE
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CANCELLED
	}

	return UNKNOWN_FAILURE
}
