package stage

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gcstr/verpack/internal/apperr"
)

// epoch is stamped on every archive entry so equal trees give equal archives.
var epoch = time.Unix(0, 0).UTC()

// ArchiveName is the file name of the archive for a package release.
func ArchiveName(pkg, release string) string {
	return pkg + "-" + release + ".tar.gz"
}

// WriteArchive writes dir as a gzip-compressed tar stream to w. Entry names
// are prefixed with prefix when it is non-empty. Symlinks are stored as links.
func WriteArchive(dir, prefix string, w io.Writer) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	root := filepath.Clean(dir)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)
		if prefix != "" {
			name = path.Join(prefix, name)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr := &tar.Header{Name: name, Mode: int64(info.Mode().Perm()), ModTime: epoch, Format: tar.FormatPAX}
		switch {
		case info.IsDir():
			hdr.Name += "/"
			hdr.Typeflag = tar.TypeDir
			return tw.WriteHeader(hdr)
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = target
			return tw.WriteHeader(hdr)
		case !info.Mode().IsRegular():
			return nil
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		hdr.Typeflag = tar.TypeReg
		hdr.Size = info.Size()
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		_ = tw.Close()
		_ = gz.Close()
		return apperr.Wrap("stage.WriteArchive", apperr.Internal, err, "archive %s", root)
	}
	if err := tw.Close(); err != nil {
		_ = gz.Close()
		return apperr.Wrap("stage.WriteArchive", apperr.Internal, err, "close tar")
	}
	if err := gz.Close(); err != nil {
		return apperr.Wrap("stage.WriteArchive", apperr.Internal, err, "close gzip")
	}
	return nil
}

// WriteArchiveFile writes the archive of dir to file, replacing it.
func WriteArchiveFile(dir, prefix, file string) error {
	f, err := os.Create(file)
	if err != nil {
		return apperr.Wrap("stage.WriteArchiveFile", apperr.Internal, err, "create %s", file)
	}
	if err := WriteArchive(dir, prefix, f); err != nil {
		_ = f.Close()
		_ = os.Remove(file)
		return err
	}
	if err := f.Close(); err != nil {
		return apperr.Wrap("stage.WriteArchiveFile", apperr.Internal, err, "close %s", file)
	}
	return nil
}
