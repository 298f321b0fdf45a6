package renderer

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicFile 先写入同目录下的临时文件，Commit 时重命名到目标路径。
type AtomicFile struct {
	path string
	tmp  *os.File
}

// CreateAtomic creates the output directory and a temp file next to path.
func CreateAtomic(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("创建临时文件失败: %w", err)
	}
	return &AtomicFile{path: path, tmp: tmp}, nil
}

func (f *AtomicFile) Write(p []byte) (int, error) { return f.tmp.Write(p) }

// Commit flushes, closes and renames the temp file onto the destination.
func (f *AtomicFile) Commit() error {
	if err := f.tmp.Sync(); err != nil {
		f.Abort()
		return err
	}
	if err := f.tmp.Close(); err != nil {
		os.Remove(f.tmp.Name())
		return err
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		os.Remove(f.tmp.Name())
		return err
	}
	return nil
}

// Abort removes the temp file.
func (f *AtomicFile) Abort() error {
	f.tmp.Close()
	if err := os.Remove(f.tmp.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
