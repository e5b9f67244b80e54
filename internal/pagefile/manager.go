// Package pagefile is the engine's file manager (component A): a
// single file descriptor, the file's total size, and exactly one
// mapped page at a time. It is grounded on btree/disk.go and
// refactor_code/internal/storage/disk/file_ops.go, which hand-roll
// this with raw syscall.Mmap/Munmap; here the mapping goes through
// github.com/edsrzf/mmap-go (the cross-platform mmap wrapper also
// used by dolthub-dolt) instead of calling into syscall directly.
package pagefile

import (
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/AaLexUser/low-level-programming/errs"
	"github.com/AaLexUser/low-level-programming/internal/llog"
)

// DefaultPageSize is the page size used when none is configured; it is
// a power of two and matches the common OS page size.
const DefaultPageSize = 4096

// Manager owns one open file and at most one mapped page. Every
// higher layer must assume exactly one chunk is visible in memory at
// any moment: calling Map again unmaps the previously mapped page.
type Manager struct {
	path     string
	pageSize int

	file     *os.File
	fileSize int64

	window       mmap.MMap
	windowOffset int64
	mapped       bool
}

// Open opens or creates path for read/write and, if the file is
// already non-empty, maps page 0. An empty file is a normal starting
// state, not an error; only OS-level failures (open/stat/mmap) are
// surfaced.
func Open(path string, pageSize int) (*Manager, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	llog.Logf(llog.LevelInfo, "Open", "opening file %s", path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		llog.Logf(llog.LevelError, "Open", "unable to open file: %v", err)
		return nil, errs.Wrap(errs.KindIO, err, "open file")
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errs.Wrap(errs.KindIO, err, "stat file")
	}
	m := &Manager{
		path:     path,
		pageSize: pageSize,
		file:     f,
		fileSize: fi.Size(),
	}
	if m.fileSize != 0 {
		if err := m.Map(0); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return m, nil
}

// PageSize returns the configured page size.
func (m *Manager) PageSize() int { return m.pageSize }

// FileSize returns the current total file size in bytes.
func (m *Manager) FileSize() int64 { return m.fileSize }

// NewPage extends the file by one page via truncation, maps the new
// page, and returns its byte offset.
func (m *Manager) NewPage() (int64, error) {
	llog.Logf(llog.LevelInfo, "NewPage", "extending file by one page")
	offset := m.fileSize
	newSize := m.fileSize + int64(m.pageSize)
	if err := m.file.Truncate(newSize); err != nil {
		llog.Logf(llog.LevelError, "NewPage", "unable to change file size: %v", err)
		return 0, errs.Wrap(errs.KindAlloc, err, "truncate file")
	}
	m.fileSize = newSize
	if err := m.Map(offset); err != nil {
		return 0, err
	}
	return offset, nil
}

// Map unmaps any current window and maps exactly one page at offset.
func (m *Manager) Map(offset int64) error {
	if m.fileSize == 0 {
		return errs.New(errs.KindIO, "cannot map: file is empty")
	}
	if m.mapped {
		if err := m.unmapLocked(); err != nil {
			return err
		}
	}
	region, err := mmap.MapRegion(m.file, m.pageSize, mmap.RDWR, 0, offset)
	if err != nil {
		llog.Logf(llog.LevelError, "Map", "unable to map file: %v", err)
		return errs.Wrap(errs.KindIO, err, "mmap page")
	}
	m.window = region
	m.windowOffset = offset
	m.mapped = true
	return nil
}

// MappedOffset returns the byte offset of the currently mapped page.
func (m *Manager) MappedOffset() int64 { return m.windowOffset }

func (m *Manager) unmapLocked() error {
	if !m.mapped {
		return nil
	}
	if err := m.window.Flush(); err != nil {
		return errs.Wrap(errs.KindIO, err, "flush page")
	}
	if err := m.window.Unmap(); err != nil {
		return errs.Wrap(errs.KindIO, err, "unmap page")
	}
	m.window = nil
	m.mapped = false
	return nil
}

// Read copies len(dst) bytes from the mapped page starting at
// offsetWithinPage into dst.
func (m *Manager) Read(dst []byte, offsetWithinPage int) error {
	if !m.mapped {
		return errs.New(errs.KindIO, "read: no page mapped")
	}
	n := copy(dst, m.window[offsetWithinPage:offsetWithinPage+len(dst)])
	if n != len(dst) {
		return errs.New(errs.KindIO, "read: short copy")
	}
	return nil
}

// Write copies src into the mapped page at offsetWithinPage and
// flushes the page to the backing file through Sync. The flush is
// synchronous: Write returns only after it completes.
func (m *Manager) Write(src []byte, offsetWithinPage int) error {
	if !m.mapped {
		return errs.New(errs.KindIO, "write: no page mapped")
	}
	n := copy(m.window[offsetWithinPage:offsetWithinPage+len(src)], src)
	if n != len(src) {
		return errs.New(errs.KindIO, "write: short copy")
	}
	return m.Sync()
}

// Sync flushes the active window to the backing file. mmap-go's Flush
// is a synchronous msync(MS_SYNC); callers here treat it as
// best-effort and never block waiting beyond the call itself.
func (m *Manager) Sync() error {
	if !m.mapped {
		return nil
	}
	if err := m.window.Flush(); err != nil {
		return errs.Wrap(errs.KindIO, err, "sync page")
	}
	return nil
}

// Close syncs and unmaps the active window and closes the file
// descriptor.
func (m *Manager) Close() error {
	if err := m.unmapLocked(); err != nil {
		return err
	}
	if err := m.file.Close(); err != nil {
		return errs.Wrap(errs.KindIO, err, "close file")
	}
	return nil
}

// Unlink unmaps, closes, and deletes the backing file.
func (m *Manager) Unlink() error {
	path := m.path
	if err := m.Close(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return errs.Wrap(errs.KindIO, err, "unlink file")
	}
	return nil
}
