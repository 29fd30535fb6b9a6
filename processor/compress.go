package processor

import (
	"errors"
	"fmt"

	"github.com/golang/snappy"
)

// MaxDocumentSize bounds the decoded size of a stored document
const MaxDocumentSize = 64 << 20

// ErrDocumentTooLarge is returned when a block would decode past MaxDocumentSize
var ErrDocumentTooLarge = errors.New("document exceeds maximum size")

// Compress encodes data as a snappy block
func Compress(data []byte) []byte {
	return snappy.Encode(nil, data)
}

// Decompress decodes a snappy block, checking the declared length first
func Decompress(data []byte) ([]byte, error) {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("invalid snappy block: %w", err)
	}
	if n > MaxDocumentSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrDocumentTooLarge, n)
	}
	return snappy.Decode(make([]byte, n), data)
}
