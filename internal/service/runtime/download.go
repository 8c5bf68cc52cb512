package runtime

import (
	"context"
	"crypto"
	"crypto/sha1" //nolint:gosec // The manifest publishes sha1 checksums.
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/packwatch/internal/config"
	"github.com/oshokin/packwatch/internal/logger"
	"github.com/oshokin/packwatch/internal/provider"
)

const partSuffix = ".part"

var (
	// ErrHashMismatch is returned when the downloaded archive has another checksum.
	ErrHashMismatch = errors.New("runtime archive checksum mismatch")
	// ErrSizeMismatch is returned when the downloaded archive has another length.
	ErrSizeMismatch = errors.New("runtime archive size mismatch")

	errBadArchiveName = errors.New("bad runtime archive name")
)

// Sum is the checksum and length of a file.
type Sum struct {
	// SHA1 is hex-encoded.
	SHA1 string
	// Size is in bytes.
	Size int64
}

// Checksum computes the sha1 and size of the file at path.
func Checksum(path string) (Sum, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Sum{}, err
	}

	defer func() {
		_ = file.Close()
	}()

	return checksumOf(file)
}

func checksumOf(r io.Reader) (Sum, error) {
	hasher := sha1.New() //nolint:gosec // See import.

	size, err := io.Copy(hasher, r)
	if err != nil {
		return Sum{}, fmt.Errorf("calculate checksum: %w", err)
	}

	return Sum{
		SHA1: hex.EncodeToString(hasher.Sum(nil)),
		Size: size,
	}, nil
}

// verify compares the sum with the descriptor.
func (s Sum) verify(descriptor Descriptor) error {
	if s.Size != descriptor.Size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, s.Size, descriptor.Size)
	}

	if !strings.EqualFold(s.SHA1, descriptor.SHA1) {
		return fmt.Errorf("%w: got %s, want %s", ErrHashMismatch, s.SHA1, descriptor.SHA1)
	}

	return nil
}

// fetchArchive returns the path of a verified archive inside dir, downloading it when needed.
func (p *Provisioner) fetchArchive(ctx context.Context, descriptor Descriptor, dir string) (string, error) {
	name := path.Base(descriptor.URL)
	if name == "." || name == "/" || name == MarkerFilename {
		return "", fmt.Errorf("%w: %q", errBadArchiveName, descriptor.URL)
	}

	archivePath := filepath.Join(dir, name)

	if sum, err := Checksum(archivePath); err == nil {
		if sum.verify(descriptor) == nil {
			logger.InfoKV(ctx, "Reusing verified runtime archive", "archive", archivePath)
			return archivePath, nil
		}

		logger.WarnKV(ctx, "Discarding runtime archive that fails verification", "archive", archivePath)
	}

	// Leftovers of an earlier attempt are never trusted.
	for _, stale := range []string{archivePath, archivePath + partSuffix} {
		if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("remove stale download: %w", err)
		}
	}

	logger.InfoKV(ctx, "Downloading runtime archive", "url", descriptor.URL, "size", descriptor.Size)

	partPath := archivePath + partSuffix

	sum, err := p.downloadTo(ctx, descriptor.URL, partPath, descriptor.Size)
	if err == nil {
		err = sum.verify(descriptor)
	}

	if err != nil {
		_ = os.Remove(partPath)
		return "", err
	}

	if err = commit(partPath, archivePath, sum); err != nil {
		_ = os.Remove(partPath)
		return "", err
	}

	return archivePath, nil
}

// downloadTo streams url into target and returns the sum of the written bytes.
// At most limit+1 bytes are written, enough for verification to notice an oversized body.
func (p *Provisioner) downloadTo(ctx context.Context, url, target string, limit int64) (Sum, error) {
	response, err := p.download.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if response != nil && response.RawBody() != nil {
		defer func() {
			_ = response.RawBody().Close()
		}()
	}

	if err = provider.Do(response, err); err != nil {
		return Sum{}, fmt.Errorf("download runtime archive: %w", err)
	}

	file, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return Sum{}, fmt.Errorf("create runtime archive: %w", err)
	}

	sum, err := checksumOf(io.TeeReader(io.LimitReader(response.RawBody(), limit+1), file))

	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = closeErr
	}

	if err != nil {
		return Sum{}, fmt.Errorf("download runtime archive: %w", err)
	}

	return sum, nil
}

// commit moves the verified download into place, checking the checksum once more.
func commit(partPath, archivePath string, sum Sum) error {
	checksum, err := hex.DecodeString(sum.SHA1)
	if err != nil {
		return fmt.Errorf("decode checksum: %w", err)
	}

	part, err := os.Open(filepath.Clean(partPath))
	if err != nil {
		return fmt.Errorf("open runtime archive: %w", err)
	}

	defer func() {
		_ = part.Close()
	}()

	// The updater swaps files and needs an existing target.
	target, err := os.OpenFile(filepath.Clean(archivePath), os.O_CREATE|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("create runtime archive: %w", err)
	}

	_ = target.Close()

	err = goupdate.Apply(part, goupdate.Options{
		TargetPath: archivePath,
		TargetMode: config.DefaultFilePermissions,
		Checksum:   checksum,
		Hash:       crypto.SHA1,
	})
	if err != nil {
		return fmt.Errorf("commit runtime archive: %w", err)
	}

	_ = part.Close()

	if err = os.Remove(partPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove partial download: %w", err)
	}

	return nil
}
