package unload

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"time"
)

type Metadata struct {
	Size        int64
	Checksum    string
	Location    string
	StartedAt   time.Time
	CompletedAt time.Time
}

// digestWriter tracks size and sha256 of the encoded bytes written to a data file.
type digestWriter struct {
	w    io.Writer
	hash hash.Hash
	size int64
}

func newDigestWriter(w io.Writer) *digestWriter {
	return &digestWriter{w: w, hash: sha256.New()}
}

func (d *digestWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	d.hash.Write(p[:n])
	d.size += int64(n)
	return n, err
}

func (d *digestWriter) metadata(path string, started time.Time) *Metadata {
	return &Metadata{
		Size:        d.size,
		Checksum:    hex.EncodeToString(d.hash.Sum(nil)),
		Location:    path,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}
}
