// Package contenthash implements the Dropbox content hash, the checksum the
// API reports as FileMetadata.content_hash.
//
// The input is split into 4 MiB blocks. Each block is hashed with SHA-256,
// the block digests are concatenated, and the result is hashed with SHA-256
// again. The final block may be shorter; an empty input has no blocks.
//
// Reference: https://www.dropbox.com/developers/reference/content-hash
package contenthash

import (
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"hash"
	"io"
)

const (
	// Size is the length, in bytes, of a content hash digest.
	Size = sha256.Size

	// BlockSize is the number of input bytes covered by one block digest.
	BlockSize = 4 * 1024 * 1024
)

// digest is the internal state of a content hash computation.
type digest struct {
	overall hash.Hash // SHA-256 over the finished block digests
	block   hash.Hash // SHA-256 of the current block
	inBlock int       // bytes written to the current block
}

// New returns a new hash.Hash computing the Dropbox content hash.
func New() hash.Hash {
	return &digest{overall: sha256.New(), block: sha256.New()}
}

// Write absorbs more data into the running hash.
// It always returns len(p), nil.
func (d *digest) Write(p []byte) (int, error) {
	n := len(p)

	for len(p) > 0 {
		room := BlockSize - d.inBlock
		chunk := p[:min(room, len(p))]

		d.block.Write(chunk)
		d.inBlock += len(chunk)
		p = p[len(chunk):]

		if d.inBlock == BlockSize {
			d.overall.Write(d.block.Sum(nil))
			d.block.Reset()
			d.inBlock = 0
		}
	}

	return n, nil
}

// Sum appends the current hash to b and returns the resulting slice.
// It does not change the underlying hash state.
func (d *digest) Sum(b []byte) []byte {
	if d.inBlock == 0 {
		return d.overall.Sum(b)
	}

	// Fold the partial block into a copy of the overall state.
	overall := sha256.New()

	state, err := d.overall.(encoding.BinaryMarshaler).MarshalBinary()
	if err == nil {
		err = overall.(encoding.BinaryUnmarshaler).UnmarshalBinary(state)
	}

	if err != nil {
		// crypto/sha256 always supports state marshaling.
		panic("contenthash: " + err.Error())
	}

	overall.Write(d.block.Sum(nil))

	return overall.Sum(b)
}

// Reset resets the hash to its initial state.
func (d *digest) Reset() {
	d.overall.Reset()
	d.block.Reset()
	d.inBlock = 0
}

// Size returns the number of bytes Sum will return.
func (d *digest) Size() int {
	return Size
}

// BlockSize returns the hash's underlying block size.
func (d *digest) BlockSize() int {
	return sha256.BlockSize
}

// FromReader hashes everything read from r and returns the lowercase hex
// digest, the form the API uses.
func FromReader(r io.Reader) (string, error) {
	h := New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
