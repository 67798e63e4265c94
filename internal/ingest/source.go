package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/dmmcquay/pgnbook/internal/retry"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type source struct {
	io.Reader
	closers []func() error
}

func (s *source) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openSource opens path for reading, decompressing zstd frames when the
// content starts with the zstd magic number. Missing or unreadable files are
// marked permanent so they are not retried.
func openSource(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	br := bufio.NewReaderSize(f, 64*1024)
	s := &source{Reader: br, closers: []func() error{f.Close}}

	magic, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		_ = s.Close()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if bytes.Equal(magic, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			_ = s.Close()
			return nil, retry.Permanent(fmt.Errorf("zstd %s: %w", path, err))
		}
		s.Reader = dec
		s.closers = append(s.closers, func() error {
			dec.Close()
			return nil
		})
	}
	return s, nil
}
