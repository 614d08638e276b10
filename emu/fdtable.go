package emu

import (
	"os"
	"sync"
)

// Open flags accepted by the open host call, as defined by SPIM and MARS.
const (
	OpenReadOnly    uint32 = 0
	OpenWriteCreate uint32 = 1
	OpenAppend      uint32 = 9
)

// FileDescriptor represents an open file descriptor.
type FileDescriptor struct {
	HostFile *os.File // nil for the standard streams
	Path     string
	IsOpen   bool
}

// FDTable manages the file descriptors handed out by the open host call.
type FDTable struct {
	fds    map[uint32]*FileDescriptor
	nextFD uint32
	mu     sync.Mutex
}

// NewFDTable creates a new file descriptor table with standard streams initialized.
func NewFDTable() *FDTable {
	t := &FDTable{
		fds:    make(map[uint32]*FileDescriptor),
		nextFD: 3,
	}

	// The standard streams are serviced by the handler's own reader and
	// writers, not by host files.
	t.fds[0] = &FileDescriptor{Path: "stdin", IsOpen: true}
	t.fds[1] = &FileDescriptor{Path: "stdout", IsOpen: true}
	t.fds[2] = &FileDescriptor{Path: "stderr", IsOpen: true}

	return t
}

func hostOpenFlags(flags uint32) (int, bool) {
	switch flags {
	case OpenReadOnly:
		return os.O_RDONLY, true
	case OpenWriteCreate:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, true
	case OpenAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, true
	default:
		return 0, false
	}
}

// Open opens a host file and returns a new file descriptor.
func (t *FDTable) Open(path string, flags uint32) (uint32, error) {
	hostFlags, ok := hostOpenFlags(flags)
	if !ok {
		return 0, os.ErrInvalid
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	hostFile, err := os.OpenFile(path, hostFlags, 0o644)
	if err != nil {
		return 0, err
	}

	fd := t.nextFD
	t.nextFD++

	t.fds[fd] = &FileDescriptor{
		HostFile: hostFile,
		Path:     path,
		IsOpen:   true,
	}

	return fd, nil
}

// Close closes a file descriptor.
func (t *FDTable) Close(fd uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.fds[fd]
	if !exists || !entry.IsOpen {
		return os.ErrInvalid
	}

	entry.IsOpen = false

	if entry.HostFile == nil {
		return nil
	}

	err := entry.HostFile.Close()
	entry.HostFile = nil
	return err
}

// Get returns the file descriptor entry if it exists and is open.
func (t *FDTable) Get(fd uint32) (*FileDescriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.fds[fd]
	if !exists || !entry.IsOpen {
		return nil, false
	}

	return entry, true
}

// IsOpen checks if a file descriptor is open.
func (t *FDTable) IsOpen(fd uint32) bool {
	_, ok := t.Get(fd)
	return ok
}

// CloseAll closes every host file.
func (t *FDTable) CloseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range t.fds {
		if entry.HostFile != nil {
			_ = entry.HostFile.Close()
			entry.HostFile = nil
		}
		entry.IsOpen = false
	}
}
