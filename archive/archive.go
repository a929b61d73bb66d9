// Package archive provides whole-buffer TAR and ZIP readers and writers
// layered on the codec packages: a TAR stream can be wrapped in gzip,
// Zstandard, or an LZ4 frame, and ZIP entries are deflated with
// github.com/klauspost/compress/flate.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"

	"github.com/klauspost/compress/flate"

	"github.com/NerdMeNot/press"
	"github.com/NerdMeNot/press/gzip"
	"github.com/NerdMeNot/press/lz4"
	"github.com/NerdMeNot/press/zstd"
)

// A File is one regular-file entry of an archive.
type File struct {
	Name string
	Mode int64
	Data []byte
}

// Format selects the compression wrapped around a TAR stream.
type Format int

const (
	Tar Format = iota
	TarGzip
	TarZstd
	TarLZ4
)

// WriteTar writes files as a TAR stream in the given format.
func WriteTar(w io.Writer, files []File, format Format) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     f.Name,
			Mode:     f.Mode,
			Size:     int64(len(f.Data)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		if _, err := tw.Write(f.Data); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	var out []byte
	switch format {
	case Tar:
		out = buf.Bytes()
	case TarGzip:
		var err error
		out, err = gzip.Encode(nil, buf.Bytes())
		if err != nil {
			return err
		}
	case TarZstd:
		out = zstd.Encode(nil, buf.Bytes())
	case TarLZ4:
		out = lz4.CompressFrame(nil, buf.Bytes(), nil)
	default:
		return fmt.Errorf("archive: unknown format %d", format)
	}
	_, err := w.Write(out)
	return err
}

// ReadTar reads a TAR stream in the given format and returns its regular
// files. When maxOutputSize is positive it bounds both the decompressed
// TAR stream and the total entry data, failing with
// press.ErrOutputTooLarge.
func ReadTar(r io.Reader, format Format, maxOutputSize int) ([]File, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var raw []byte
	switch format {
	case Tar:
		raw = src
	case TarGzip:
		raw, err = gzip.Decode(src, maxOutputSize)
	case TarZstd:
		raw, err = zstd.Decode(src, maxOutputSize)
	case TarLZ4:
		var opts *lz4.DecompressOptions
		if maxOutputSize > 0 {
			opts = &lz4.DecompressOptions{MaxOutputSize: maxOutputSize}
		}
		raw, err = lz4.DecompressFrame(src, opts)
	default:
		return nil, fmt.Errorf("archive: unknown format %d", format)
	}
	if err != nil {
		return nil, err
	}

	tr := tar.NewReader(bytes.NewReader(raw))
	var files []File
	total := int64(0)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("archive: %v: %w", err, press.ErrInvalidData)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if hdr.Size < 0 {
			return nil, fmt.Errorf("archive: negative entry size: %w", press.ErrInvalidData)
		}
		total += hdr.Size
		if maxOutputSize > 0 && total > int64(maxOutputSize) {
			return nil, fmt.Errorf("archive: %w", press.ErrOutputTooLarge)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("archive: %v: %w", err, press.ErrUnexpectedEOF)
		}
		files = append(files, File{Name: hdr.Name, Mode: hdr.Mode, Data: data})
	}
	return files, nil
}

// WriteZip writes files as a ZIP archive with deflated entries.
func WriteZip(w io.Writer, files []File) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	for _, f := range files {
		hdr := &zip.FileHeader{
			Name:   f.Name,
			Method: zip.Deflate,
		}
		hdr.SetMode(fs.FileMode(f.Mode))
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	return zw.Close()
}

// ReadZip reads a ZIP archive and returns its files. When maxOutputSize
// is positive it bounds the total decompressed entry data, failing with
// press.ErrOutputTooLarge.
func ReadZip(r io.ReaderAt, size int64, maxOutputSize int) ([]File, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("archive: %v: %w", err, press.ErrInvalidData)
	}
	zr.RegisterDecompressor(zip.Deflate, func(in io.Reader) io.ReadCloser {
		return flate.NewReader(in)
	})

	var files []File
	total := uint64(0)
	for _, f := range zr.File {
		total += f.UncompressedSize64
		if maxOutputSize > 0 && total > uint64(maxOutputSize) {
			return nil, fmt.Errorf("archive: %w", press.ErrOutputTooLarge)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("archive: %v: %w", err, press.ErrInvalidData)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("archive: %v: %w", err, press.ErrInvalidData)
		}
		files = append(files, File{
			Name: f.Name,
			Mode: int64(f.Mode().Perm()),
			Data: data,
		})
	}
	return files, nil
}
