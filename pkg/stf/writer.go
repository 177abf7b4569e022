package stf

import (
	"errors"
	"io"
	"os"
	"sort"
	"sync"
)

var (
	errFinalised = errors.New("stf: writer already finalised")
	errOpen      = errors.New("stf: section write in progress")
	errDuplicate = errors.New("stf: duplicate section type")
	errInactive  = errors.New("stf: section writer not active")
)

// Writer builds a container in a single pass. Header bytes are reserved up
// front and patched by Finalise.
type Writer struct {
	f        *os.File
	sections []Section
	seen     map[SectionType]struct{}
	open     *SectionWriter
	closed   bool
	flags    uint64
	pad      [align]byte

	mu sync.Mutex
}

// SectionWriter streams one section payload straight to the file. It must be
// ended before any other section is written.
type SectionWriter struct {
	w       *Writer
	typ     SectionType
	version uint32
	start   int64
	ended   bool
}

// NewWriter truncates f and reserves the header.
func NewWriter(f *os.File) (*Writer, error) {
	if f == nil {
		return nil, errors.New("stf: nil file")
	}
	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	w := &Writer{f: f, seen: make(map[SectionType]struct{})}
	if err := writeFull(f, make([]byte, headerSize)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) AddFlags(flags uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flags |= flags
}

func (w *Writer) checkNew(typ SectionType) error {
	switch {
	case w.closed:
		return errFinalised
	case w.open != nil:
		return errOpen
	}
	if _, ok := w.seen[typ]; ok {
		return errDuplicate
	}
	return nil
}

// WriteSection writes a whole payload as one section. Each type may be
// written once.
func (w *Writer) WriteSection(typ SectionType, version uint32, data []byte) error {
	sw, err := w.BeginSection(typ, version)
	if err != nil {
		return err
	}
	if _, err := sw.Write(data); err != nil {
		return err
	}
	return sw.End()
}

// BeginSection starts streaming a section payload.
func (w *Writer) BeginSection(typ SectionType, version uint32) (*SectionWriter, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkNew(typ); err != nil {
		return nil, err
	}
	if err := w.alignTo(align); err != nil {
		return nil, err
	}
	start, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	sw := &SectionWriter{w: w, typ: typ, version: version, start: start}
	w.open = sw
	w.seen[typ] = struct{}{}
	return sw, nil
}

// Offset returns the absolute file offset the next Write lands at.
func (sw *SectionWriter) Offset() (uint64, error) {
	sw.w.mu.Lock()
	defer sw.w.mu.Unlock()
	if sw.ended || sw.w.open != sw {
		return 0, errInactive
	}
	pos, err := sw.w.f.Seek(0, io.SeekCurrent)
	return uint64(pos), err
}

// Align pads the section with zeros up to an n-byte boundary.
func (sw *SectionWriter) Align(n int) error {
	sw.w.mu.Lock()
	defer sw.w.mu.Unlock()
	if sw.ended || sw.w.open != sw {
		return errInactive
	}
	return sw.w.alignTo(int64(n))
}

func (sw *SectionWriter) Write(p []byte) (int, error) {
	sw.w.mu.Lock()
	defer sw.w.mu.Unlock()
	if sw.ended || sw.w.open != sw {
		return 0, errInactive
	}
	if err := writeFull(sw.w.f, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// End records the section in the directory.
func (sw *SectionWriter) End() error {
	sw.w.mu.Lock()
	defer sw.w.mu.Unlock()
	if sw.ended || sw.w.open != sw {
		return errInactive
	}
	pos, err := sw.w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	sw.w.sections = append(sw.w.sections, Section{
		Type:    uint32(sw.typ),
		Version: sw.version,
		Offset:  uint64(sw.start),
		Size:    uint64(pos - sw.start),
	})
	sw.w.open = nil
	sw.ended = true
	return nil
}

// Finalise writes the section directory, patches the header and syncs the
// file. The writer cannot be used afterwards.
func (w *Writer) Finalise() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errFinalised
	}
	if w.open != nil {
		return errOpen
	}
	w.closed = true

	sort.Slice(w.sections, func(i, j int) bool { return w.sections[i].Type < w.sections[j].Type })

	if err := w.alignTo(align); err != nil {
		return err
	}
	dirOffset, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	var secBuf [sectionSize]byte
	for _, s := range w.sections {
		encodeSection(secBuf[:], s)
		if err := writeFull(w.f, secBuf[:]); err != nil {
			return err
		}
	}
	fileSize, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := w.f.Truncate(fileSize); err != nil {
		return err
	}

	hdr := Header{
		Major:            CurrentMajor,
		Minor:            CurrentMinor,
		HeaderSize:       headerSize,
		SectionCount:     uint32(len(w.sections)),
		SectionDirOffset: uint64(dirOffset),
		FileSize:         uint64(fileSize),
		Flags:            w.flags,
	}
	copy(hdr.Magic[:], Magic)
	var hdrBuf [headerSize]byte
	encodeHeader(hdrBuf[:], hdr)
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := writeFull(w.f, hdrBuf[:]); err != nil {
		return err
	}
	return w.f.Sync()
}

func (w *Writer) alignTo(n int64) error {
	if n <= 1 {
		return nil
	}
	pos, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	for pad := (n - pos%n) % n; pad > 0; {
		chunk := min(pad, int64(len(w.pad)))
		if err := writeFull(w.f, w.pad[:chunk]); err != nil {
			return err
		}
		pad -= chunk
	}
	return nil
}

func writeFull(f *os.File, p []byte) error {
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
