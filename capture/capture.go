package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
)

type Direction uint8

const (
	DirectionIn Direction = iota + 1
	DirectionOut
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	default:
		return fmt.Sprintf("dir(%d)", uint8(d))
	}
}

var magic = [4]byte{'S', 'S', 'C', 1}

// Record layout inside the compressed stream: direction (1), unix nanos (8), length (2), datagram.
const recordHeaderSize = 1 + 8 + 2

var ErrBadMagic = errors.New("not a shadowswap capture")

type Record struct {
	Direction Direction
	Time      time.Time
	Data      []byte
}

// Writer journals datagrams through a flate stream. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	fw     *flate.Writer
	closer io.Closer
	header [recordHeaderSize]byte
}

// Create truncates path and starts a new capture there.
func Create(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create capture file: %w", err)
	}

	w, err := NewWriter(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	w.closer = file
	return w, nil
}

func NewWriter(w io.Writer) (*Writer, error) {
	if _, err := w.Write(magic[:]); err != nil {
		return nil, fmt.Errorf("could not write capture header: %w", err)
	}

	fw, err := flate.NewWriter(w, flate.BestSpeed)
	if err != nil {
		return nil, err
	}
	return &Writer{fw: fw}, nil
}

func (w *Writer) Record(dir Direction, at time.Time, data []byte) error {
	if len(data) > 0xFFFF {
		return fmt.Errorf("datagram of %d bytes is too large to capture", len(data))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.header[0] = byte(dir)
	binary.LittleEndian.PutUint64(w.header[1:9], uint64(at.UnixNano()))
	binary.LittleEndian.PutUint16(w.header[9:11], uint16(len(data)))

	if _, err := w.fw.Write(w.header[:]); err != nil {
		return err
	}
	_, err := w.fw.Write(data)
	return err
}

// Flush pushes everything recorded so far to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fw.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.fw.Close()
	if w.closer != nil {
		if closeErr := w.closer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

type Reader struct {
	fr     io.ReadCloser
	r      *bufio.Reader
	closer io.Closer
}

func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open capture file: %w", err)
	}

	r, err := NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

func NewReader(r io.Reader) (*Reader, error) {
	var got [len(magic)]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if got != magic {
		return nil, ErrBadMagic
	}

	fr := flate.NewReader(r)
	return &Reader{fr: fr, r: bufio.NewReader(fr)}, nil
}

// Next returns io.EOF after the last complete record and io.ErrUnexpectedEOF
// when the capture stops in the middle of one.
func (r *Reader) Next() (Record, error) {
	var header [recordHeaderSize]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		return Record{}, err
	}

	rec := Record{
		Direction: Direction(header[0]),
		Time:      time.Unix(0, int64(binary.LittleEndian.Uint64(header[1:9]))),
		Data:      make([]byte, binary.LittleEndian.Uint16(header[9:11])),
	}
	if _, err := io.ReadFull(r.r, rec.Data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *Reader) Close() error {
	err := r.fr.Close()
	if r.closer != nil {
		if closeErr := r.closer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
