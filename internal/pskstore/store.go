// Package pskstore implements the on-disk database mapping SSIDs to
// pre-shared keys: a flat text file of `<64-hex-digit PSK> <escaped SSID>`
// lines, loaded lazily into an in-memory slice of lines and flushed back
// whole on save, following wsupp_config.c's mmap-buffer-plus-dirty-flag
// design (reimplemented here over a plain slice of strings since Go gives
// no benefit from mmap for a 64 KiB file touched by one process).
package pskstore

import (
	"bytes"
	"encoding/hex"
	"io/ioutil"
	"os"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// MaxConfigSize is the upper bound on the PSK file; anything larger is
// rejected outright rather than partially loaded.
const MaxConfigSize = 64 * 1024

// PSKLen is the fixed length of a pre-shared key.
const PSKLen = 32

// ErrTooLarge is returned when the backing file exceeds MaxConfigSize.
var ErrTooLarge = syscall.E2BIG

// Store is the lazily-loaded PSK database for one file path.
type Store struct {
	path     string
	lines    []string // one entry per on-disk line, in file order
	loaded   bool
	modified bool
}

// New returns a Store bound to path; nothing is read from disk until the
// first operation that needs it.
func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	data, err := ioutil.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.lines = nil
			s.loaded = true
			return nil
		}
		return errors.Wrapf(err, "pskstore: reading %s", s.path)
	}
	if len(data) > MaxConfigSize {
		return ErrTooLarge
	}
	s.lines = splitLines(data)
	s.loaded = true
	return nil
}

func splitLines(data []byte) []string {
	text := string(data)
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// parseLine splits a line into its hex-PSK field and escaped-SSID field,
// skipping leading whitespace as the reference's split_line does. It
// returns ok=false for any line that isn't exactly a 64-hex-digit field
// followed by whitespace and (possibly empty) remainder.
func parseLine(line string) (psk [PSKLen]byte, ssid []byte, ok bool) {
	line = strings.TrimLeft(line, " \t")
	i := 0
	for i < len(line) && line[i] != ' ' && line[i] != '\t' {
		i++
	}
	hexField := line[:i]
	if len(hexField) != PSKLen*2 {
		return psk, nil, false
	}
	raw, err := hex.DecodeString(hexField)
	if err != nil {
		return psk, nil, false
	}
	copy(psk[:], raw)

	rest := line[i:]
	rest = strings.TrimLeft(rest, " \t")
	ssid = UnescapeSSID(rest)
	return psk, ssid, true
}

func formatLine(ssid []byte, psk [PSKLen]byte) string {
	return strings.ToUpper(hex.EncodeToString(psk[:])) + " " + EscapeSSID(ssid)
}

// GotPSKFor reports whether a PSK is stored for ssid.
func (s *Store) GotPSKFor(ssid []byte) (bool, error) {
	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	_, found := s.find(ssid)
	return found, nil
}

// LoadPSK returns the stored PSK for ssid, if any.
func (s *Store) LoadPSK(ssid []byte) ([PSKLen]byte, bool, error) {
	var zero [PSKLen]byte
	if err := s.ensureLoaded(); err != nil {
		return zero, false, err
	}
	idx, found := s.find(ssid)
	if !found {
		return zero, false, nil
	}
	psk, _, _ := parseLine(s.lines[idx])
	return psk, true, nil
}

func (s *Store) find(ssid []byte) (int, bool) {
	for i, line := range s.lines {
		_, lineSSID, ok := parseLine(line)
		if ok && bytes.Equal(lineSSID, ssid) {
			return i, true
		}
	}
	return -1, false
}

// SavePSK inserts or, if ssid already has a record, replaces it in place.
func (s *Store) SavePSK(ssid []byte, psk [PSKLen]byte) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	line := formatLine(ssid, psk)
	if idx, found := s.find(ssid); found {
		s.lines[idx] = line
	} else {
		s.lines = append(s.lines, line)
	}
	s.modified = true
	return nil
}

// DropPSK removes the stored record for ssid, if present.
func (s *Store) DropPSK(ssid []byte) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	idx, found := s.find(ssid)
	if !found {
		return nil
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	s.modified = true
	return nil
}

// SaveConfig flushes the in-memory buffer to disk if it has been modified
// since the last save, using mode 0600 as the PSK file carries secrets.
func (s *Store) SaveConfig() error {
	if !s.modified {
		return nil
	}
	var buf bytes.Buffer
	for _, line := range s.lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := ioutil.WriteFile(s.path, buf.Bytes(), 0600); err != nil {
		return errors.Wrapf(err, "pskstore: writing %s", s.path)
	}
	s.modified = false
	return nil
}

// DropConfig flushes any pending changes and releases the in-memory
// buffer, so the next operation reloads from disk.
func (s *Store) DropConfig() error {
	if err := s.SaveConfig(); err != nil {
		return err
	}
	s.lines = nil
	s.loaded = false
	s.modified = false
	return nil
}
