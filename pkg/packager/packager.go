// Package packager turns a batch working file into the artifact that is
// uploaded: the file itself, a compressed stream, or a single-entry
// container.
package packager

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"mercator-hq/archivist/pkg/lifecycle"
)

// Compression is an artifact packaging mode.
type Compression string

const (
	None     Compression = "none"
	Gzip     Compression = "gz"
	TarGzip  Compression = "tar.gz"
	TarBzip2 Compression = "tar.bz2"
	Zip      Compression = "zip"
	Zstd     Compression = "zst"
)

// Compressions lists the supported modes.
var Compressions = []Compression{None, Gzip, TarGzip, TarBzip2, Zip, Zstd}

// Default is used when no mode is configured.
const Default = Gzip

// ParseCompression validates a mode name.
func ParseCompression(s string) (Compression, error) {
	for _, c := range Compressions {
		if string(c) == s {
			return c, nil
		}
	}
	return "", lifecycle.NewConfigurationError("output.compression",
		fmt.Sprintf("unknown compression %q", s))
}

// Extension returns the artifact file suffix.
func (c Compression) Extension() string {
	if c == None {
		return ".json"
	}
	return ".json." + string(c)
}

var nameReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_")

// ArtifactName returns the deterministic base name of the artifact holding
// a batch ending at end.
func ArtifactName(collection, runName string, end lifecycle.Cursor) string {
	name := collection
	if runName != "" {
		name += "_-_" + runName
	}
	name += "_-_" + end.Value + "_-_" + end.ID
	return nameReplacer.Replace(name)
}

// Package packages workingFile as baseName next to it and returns the
// artifact path. The working file is consumed.
func Package(workingFile, baseName string, c Compression) (string, error) {
	dir := filepath.Dir(workingFile)
	artifact := filepath.Join(dir, baseName+c.Extension())
	entry := baseName + ".json"

	if c == None {
		if err := os.Rename(workingFile, artifact); err != nil {
			return "", fmt.Errorf("failed to rename working file: %w", err)
		}
		return artifact, nil
	}

	var write func(src *os.File, info os.FileInfo, dst io.Writer) error
	switch c {
	case Gzip:
		write = writeGzip
	case TarGzip:
		write = func(src *os.File, info os.FileInfo, dst io.Writer) error {
			gz, err := gzip.NewWriterLevel(dst, gzip.DefaultCompression)
			if err != nil {
				return err
			}
			if err := writeTar(src, info, entry, gz); err != nil {
				return err
			}
			return gz.Close()
		}
	case TarBzip2:
		write = func(src *os.File, info os.FileInfo, dst io.Writer) error {
			bz, err := bzip2.NewWriter(dst, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
			if err != nil {
				return err
			}
			if err := writeTar(src, info, entry, bz); err != nil {
				return err
			}
			return bz.Close()
		}
	case Zip:
		write = func(src *os.File, info os.FileInfo, dst io.Writer) error {
			return writeZip(src, info, entry, dst)
		}
	case Zstd:
		write = writeZstd
	default:
		return "", lifecycle.NewConfigurationError("output.compression",
			fmt.Sprintf("unknown compression %q", c))
	}

	if err := writeArtifact(workingFile, artifact, write); err != nil {
		return "", err
	}
	if err := os.Remove(workingFile); err != nil {
		return "", fmt.Errorf("failed to remove working file: %w", err)
	}
	return artifact, nil
}

// writeArtifact writes through a temp file renamed into place, so a crash
// never leaves a truncated artifact under the final name.
func writeArtifact(workingFile, artifact string, write func(*os.File, os.FileInfo, io.Writer) error) error {
	src, err := os.Open(workingFile)
	if err != nil {
		return fmt.Errorf("failed to open working file: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat working file: %w", err)
	}

	tmp := artifact + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}

	if err := write(src, info, dst); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to compress %s: %w", filepath.Base(artifact), err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp, artifact); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename artifact: %w", err)
	}
	return nil
}

func writeGzip(src *os.File, _ os.FileInfo, dst io.Writer) error {
	gz, err := gzip.NewWriterLevel(dst, gzip.DefaultCompression)
	if err != nil {
		return err
	}
	if _, err := io.Copy(gz, src); err != nil {
		return err
	}
	return gz.Close()
}

func writeZstd(src *os.File, _ os.FileInfo, dst io.Writer) error {
	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func writeTar(src *os.File, info os.FileInfo, entry string, dst io.Writer) error {
	tw := tar.NewWriter(dst)
	hdr := &tar.Header{
		Name:    entry,
		Mode:    0o644,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Format:  tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := io.Copy(tw, src); err != nil {
		return err
	}
	return tw.Close()
}

func writeZip(src *os.File, info os.FileInfo, entry string, dst io.Writer) error {
	zw := zip.NewWriter(dst)
	fh := &zip.FileHeader{Name: entry, Method: zip.Deflate}
	fh.Modified = info.ModTime()
	w, err := zw.CreateHeader(fh)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return zw.Close()
}
