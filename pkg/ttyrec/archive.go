package ttyrec

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/klauspost/compress/zstd"
)

// ArchiveExt marks a zstd-compressed recording.
const ArchiveExt = ".zst"

type readCloser struct {
	io.Reader
	close func() error
}

func (rc readCloser) Close() error { return rc.close() }

// Open opens a recording for reading, decompressing archives by extension.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ArchiveExt) {
		return f, nil
	}

	zr, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	return readCloser{
		Reader: zr,
		close: func() error {
			zr.Close()
			return f.Close()
		},
	}, nil
}

// Load reads every complete record of the recording at path.
// The second result reports a truncated trailing record.
func Load(path string) ([]domain.Record, bool, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, false, err
	}
	defer rc.Close()

	rd := NewReader(rc)
	var recs []domain.Record
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			return recs, rd.Truncated(), nil
		}
		if err != nil {
			return recs, rd.Truncated(), err
		}
		recs = append(recs, rec)
	}
}

// Compress packs the recording read from src into a zstd stream on dst.
// It returns the number of uncompressed bytes consumed.
func Compress(dst io.Writer, src io.Reader) (int64, error) {
	zw, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(zw, src)
	if err != nil {
		zw.Close()
		return n, err
	}
	return n, zw.Close()
}

// Pack compresses the recording at src into src + ".zst".
func Pack(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dst := src + ArchiveExt
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := Compress(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to pack %s: %w", src, err)
	}
	return dst, out.Close()
}
