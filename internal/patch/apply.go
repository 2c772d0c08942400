package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const maxBackupCandidates = 1000

// ApplyResult describes a completed apply.
type ApplyResult struct {
	Applied      bool
	BytesWritten int
	BackupPath   string
}

// Engine writes proposals to disk.
type Engine struct {
	// BackupSuffix is appended to the target path to name the backup copy.
	BackupSuffix string

	createTemp func(dir, pattern string) (*os.File, error)
	rename     func(oldpath, newpath string) error
}

// NewEngine returns an Engine using ".bak" backups.
func NewEngine() *Engine {
	return &Engine{
		BackupSuffix: ".bak",
		createTemp:   os.CreateTemp,
		rename:       os.Rename,
	}
}

// Apply renders p against the snapshot, saves a sibling backup of the
// snapshot and replaces the target through a temp file and a rename.
// On error the target is byte-identical to what it was before the call and
// no backup or temp file is left behind.
func (e *Engine) Apply(src *SourceFile, p *Proposal) (*ApplyResult, error) {
	result := &ApplyResult{}

	content, err := Render(src, p)
	if err != nil {
		return result, err
	}

	backupPath, err := e.writeBackup(src)
	if err != nil {
		return result, err
	}

	if err := e.replace(src, content); err != nil {
		_ = os.Remove(backupPath)
		return result, err
	}

	result.Applied = true
	result.BytesWritten = len(content)
	result.BackupPath = backupPath
	return result, nil
}

// writeBackup stores the snapshot next to the target under the first free
// name among path.bak, path.bak.1, path.bak.2, ...
func (e *Engine) writeBackup(src *SourceFile) (string, error) {
	suffix := e.BackupSuffix
	if suffix == "" {
		suffix = ".bak"
	}

	for i := 0; i < maxBackupCandidates; i++ {
		candidate := src.Path + suffix
		if i > 0 {
			candidate = fmt.Sprintf("%s%s.%d", src.Path, suffix, i)
		}

		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm(src))
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", &WriteError{Op: "backup", Path: candidate, Err: err}
		}

		_, werr := f.Write(src.Content)
		cerr := f.Close()
		if err := errors.Join(werr, cerr); err != nil {
			_ = os.Remove(candidate)
			return "", &WriteError{Op: "backup", Path: candidate, Err: err}
		}
		return candidate, nil
	}

	return "", &WriteError{Op: "backup", Path: src.Path, Err: errors.New("no free backup name")}
}

func (e *Engine) replace(src *SourceFile, content []byte) (err error) {
	dir := filepath.Dir(src.Path)
	tmp, err := e.createTemp(dir, "."+filepath.Base(src.Path)+".tweak-*")
	if err != nil {
		return &WriteError{Op: "temp", Path: dir, Err: err}
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return &WriteError{Op: "temp", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &WriteError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Op: "temp", Path: tmpName, Err: err}
	}
	if err := os.Chmod(tmpName, filePerm(src)); err != nil {
		return &WriteError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err := e.rename(tmpName, src.Path); err != nil {
		return &WriteError{Op: "rename", Path: src.Path, Err: err}
	}
	return nil
}

func filePerm(src *SourceFile) fs.FileMode {
	if src.Mode == 0 {
		return 0o644
	}
	return src.Mode.Perm()
}
