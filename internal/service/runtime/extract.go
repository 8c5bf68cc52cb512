package runtime

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/oshokin/packwatch/internal/config"
	"github.com/oshokin/packwatch/internal/logger"
)

var (
	// ErrExtraction is returned when decompression or extraction fails.
	ErrExtraction = errors.New("runtime extraction failed")
	// ErrMarkerMissing is returned when the extracted payload has no release file.
	ErrMarkerMissing = errors.New("runtime archive has no release file")

	errUnknownFormat = errors.New("unknown archive format")
	errUnsafePath    = errors.New("archive entry escapes the target folder")
)

// install unpacks archivePath into versionDir through a staging folder and
// removes the intermediate files. A failed install leaves no partial output.
func (p *Provisioner) install(ctx context.Context, archivePath, versionDir string) error {
	stagingRoot := filepath.Join(p.root, stagingDirname)
	if err := os.MkdirAll(stagingRoot, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("%w: create staging folder: %w", ErrExtraction, err)
	}

	staging, err := os.MkdirTemp(stagingRoot, filepath.Base(versionDir)+"-")
	if err != nil {
		return fmt.Errorf("%w: create staging folder: %w", ErrExtraction, err)
	}

	defer func() {
		if removeErr := os.RemoveAll(staging); removeErr != nil {
			logger.WarnKV(ctx, "Failed to remove staging folder", "path", staging, "error", removeErr)
		}
	}()

	logger.InfoKV(ctx, "Extracting runtime archive", "archive", archivePath)

	intermediate, err := unpack(archivePath, staging)
	if intermediate != "" {
		defer func() {
			_ = os.Remove(intermediate)
		}()
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	if !fileExists(filepath.Join(staging, MarkerFilename)) {
		return ErrMarkerMissing
	}

	if err = moveEntries(staging, versionDir); err != nil {
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	if err = os.Remove(archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Failed to remove runtime archive", "archive", archivePath, "error", err)
	}

	return nil
}

// unpack decompresses archivePath when needed and extracts the result into dest.
// It returns the decompressed intermediate file, if one was written.
func unpack(archivePath, dest string) (string, error) {
	lower := strings.ToLower(archivePath)

	var (
		decompressor func(io.Reader) (io.Reader, error)
		trimmed      string
	)

	switch {
	case strings.HasSuffix(lower, ".xz"):
		decompressor = func(r io.Reader) (io.Reader, error) { return xz.NewReader(r) }
		trimmed = archivePath[:len(archivePath)-len(".xz")]
	case strings.HasSuffix(lower, ".tgz"):
		decompressor = func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }
		trimmed = archivePath[:len(archivePath)-len(".tgz")] + ".tar"
	case strings.HasSuffix(lower, ".gz"):
		decompressor = func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }
		trimmed = archivePath[:len(archivePath)-len(".gz")]
	default:
		return "", extract(archivePath, dest)
	}

	if err := decompress(archivePath, trimmed, decompressor); err != nil {
		return trimmed, err
	}

	return trimmed, extract(trimmed, dest)
}

func decompress(source, target string, decompressor func(io.Reader) (io.Reader, error)) error {
	in, err := os.Open(filepath.Clean(source))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	reader, err := decompressor(in)
	if err != nil {
		return fmt.Errorf("open compressed stream: %w", err)
	}

	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, reader); err != nil {
		_ = out.Close()
		return fmt.Errorf("decompress %s: %w", filepath.Base(source), err)
	}

	return out.Close()
}

func extract(archivePath, dest string) error {
	lower := strings.ToLower(archivePath)

	switch {
	case strings.HasSuffix(lower, ".tar"):
		return extractTar(archivePath, dest)
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(archivePath, dest)
	default:
		return fmt.Errorf("%w: %s", errUnknownFormat, filepath.Base(archivePath))
	}
}

func extractTar(archivePath, dest string) error {
	file, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return err
	}

	defer func() {
		_ = file.Close()
	}()

	reader := tar.NewReader(file)

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("%w: %s", errUnsafePath, header.Name)
		}

		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(target, config.DefaultDirPermissions)
		case tar.TypeReg:
			err = writeFile(target, reader, header.FileInfo().Mode().Perm())
		case tar.TypeSymlink:
			err = writeSymlink(dest, target, header.Linkname)
		case tar.TypeLink:
			var source string

			if source, err = safeJoin(dest, header.Linkname); err == nil {
				err = writeHardLink(source, target)
			}
		default:
			// Devices and fifos have no place in a runtime bundle.
			continue
		}

		if err != nil {
			return fmt.Errorf("extract %s: %w", header.Name, err)
		}
	}
}

func extractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(filepath.Clean(archivePath))
	if errors.Is(err, zip.ErrInsecurePath) {
		_ = reader.Close()
		return errUnsafePath
	}

	if err != nil {
		return err
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, entry := range reader.File {
		target, err := safeJoin(dest, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err = os.MkdirAll(target, config.DefaultDirPermissions); err != nil {
				return err
			}

			continue
		}

		if err = extractZipEntry(entry, target); err != nil {
			return fmt.Errorf("extract %s: %w", entry.Name, err)
		}
	}

	return nil
}

func extractZipEntry(entry *zip.File, target string) error {
	in, err := entry.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	return writeFile(target, in, entry.Mode().Perm())
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), config.DefaultDirPermissions); err != nil {
		return err
	}

	if mode == 0 {
		mode = config.DefaultFilePermissions
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}

	//nolint:gosec // Archive size is bounded by the verified download.
	if _, err = io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}

func writeSymlink(dest, target, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("%w: %s", errUnsafePath, linkname)
	}

	resolved := filepath.Join(filepath.Dir(target), linkname)
	if !within(resolved, dest) {
		return fmt.Errorf("%w: %s", errUnsafePath, linkname)
	}

	if err := os.MkdirAll(filepath.Dir(target), config.DefaultDirPermissions); err != nil {
		return err
	}

	return os.Symlink(linkname, target)
}

func writeHardLink(source, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), config.DefaultDirPermissions); err != nil {
		return err
	}

	return os.Link(source, target)
}

// safeJoin joins name onto dest and rejects names leaving dest.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if !within(target, dest) {
		return "", fmt.Errorf("%w: %s", errUnsafePath, name)
	}

	return target, nil
}

// within reports whether path is root or lies below it.
func within(path, root string) bool {
	if path == "" || root == "" {
		return false
	}

	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// moveEntries renames every top-level entry of source into target, replacing existing ones.
func moveEntries(source, target string) error {
	entries, err := os.ReadDir(source)
	if err != nil {
		return err
	}

	// The marker goes last so an interrupted move is never mistaken for a finished one.
	var marker os.DirEntry

	for _, entry := range entries {
		if entry.Name() == MarkerFilename {
			marker = entry
			continue
		}

		if err = replace(filepath.Join(source, entry.Name()), filepath.Join(target, entry.Name())); err != nil {
			return err
		}
	}

	if marker == nil {
		return ErrMarkerMissing
	}

	return replace(filepath.Join(source, marker.Name()), filepath.Join(target, marker.Name()))
}

func replace(source, target string) error {
	if err := os.RemoveAll(target); err != nil {
		return err
	}

	return os.Rename(source, target)
}
