package store

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// Hasher computes the perceptual hash used as the canonical name of a
// stored image. Implementations must be deterministic.
type Hasher interface {
	Hash(image.Image) (string, error)
}

// DifferenceHasher hashes images using a 64-bit difference (gradient)
// hash, encoded as 16 lowercase hex characters.
type DifferenceHasher struct{}

func (DifferenceHasher) Hash(img image.Image) (string, error) {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%016x", hash.GetHash()), nil
}
