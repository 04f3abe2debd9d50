package eeprom

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// File keeps an EEPROM image in a regular file, for development machines
// and boards without the chip fitted.
type File struct {
	f *os.File
}

// OpenFile opens or creates an image at path. A new image is filled with
// erased bytes.
func OpenFile(path string) (*File, error) {
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open eeprom image: %w", err)
	}
	if errors.Is(statErr, fs.ErrNotExist) {
		if _, err := f.WriteAt(erased(Size), 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("initialize eeprom image: %w", err)
		}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat eeprom image: %w", err)
	}
	if info.Size() != Size {
		f.Close()
		return nil, fmt.Errorf("eeprom image %s is %d bytes, want %d", path, info.Size(), Size)
	}
	return &File{f: f}, nil
}

// Read reads length bytes at offset.
func (e *File) Read(offset, length int) ([]byte, error) {
	if err := checkRange(offset, length); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err := e.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("read eeprom image: %w", err)
	}
	return buf, nil
}

// Write writes data at offset and syncs the image.
func (e *File) Write(offset int, data []byte) error {
	if err := checkRange(offset, len(data)); err != nil {
		return err
	}
	if _, err := e.f.WriteAt(data, int64(offset)); err != nil {
		return fmt.Errorf("write eeprom image: %w", err)
	}
	if err := e.f.Sync(); err != nil {
		return fmt.Errorf("sync eeprom image: %w", err)
	}
	return nil
}

// Close closes the image file.
func (e *File) Close() error {
	return e.f.Close()
}
