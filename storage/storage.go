// Package storage persists renewed certificate material to the locations
// services read it from.
package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Canonical artifact names inside a renewal lineage directory.
const (
	KeyFile   = "privkey.pem"
	ChainFile = "fullchain.pem"
)

// BackupSuffix is appended to the pre-existing destination during SafeCopy.
const BackupSuffix = ".old"

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// SafeCopy backs up any pre-existing destination to destination + ".old",
// then copies source over it.  A missing destination is expected on first
// deployment and only logged; a failed backup is logged but does not block
// the copy.  The final copy itself is not atomic; callers that can't
// tolerate a partial destination feed it a fully written temporary file.
func SafeCopy(log zerolog.Logger, source, destination string) error {
	if err := copyFile(destination, destination+BackupSuffix); err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", destination).Msg("no existing file to back up")
		} else {
			log.Warn().Err(err).Str("path", destination).Msg("backup failed, overwriting anyway")
		}
	}
	return errors.WithMessagef(copyFile(source, destination), "copying %s to %s", source, destination)
}

// MergeFiles concatenates the named source files, in order, into a single
// bundle at destination.  The bundle is assembled in a temporary file and
// synced to disk before SafeCopy publishes it, so the destination never
// sees a half-written bundle from this step.  The temporary file is removed
// on return.
func MergeFiles(log zerolog.Logger, destination string, sources ...string) error {
	tmp, err := os.CreateTemp("", "deploycert-bundle-")
	if err != nil {
		return errors.WithMessage(err, "creating bundle temp file")
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	log.Info().Strs("sources", sources).Str("destination", destination).Msg("merging bundle")

	for _, source := range sources {
		in, err := os.Open(source)
		if err != nil {
			return errors.WithMessage(err, "reading bundle source")
		}
		_, err = io.Copy(tmp, in)
		in.Close()
		if err != nil {
			return errors.WithMessagef(err, "merging %s", source)
		}
	}
	if err := tmp.Sync(); err != nil {
		return errors.WithMessage(err, "syncing bundle temp file")
	}
	return SafeCopy(log, tmp.Name(), destination)
}

// CopyFiles copies each named file from sourceDir into destinationDir,
// keeping its basename, with SafeCopy semantics per file.
func CopyFiles(log zerolog.Logger, sourceDir, destinationDir string, names ...string) error {
	log.Info().Strs("files", names).Str("destination", destinationDir).Msg("copying artifacts")
	for _, name := range names {
		err := SafeCopy(log, filepath.Join(sourceDir, name), filepath.Join(destinationDir, name))
		if err != nil {
			return err
		}
	}
	return nil
}
