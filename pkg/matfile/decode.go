package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf16"
)

const headerSize = 128

// maxFieldlessElems bounds struct arrays without fields, whose elements
// occupy no bytes in the file
const maxFieldlessElems = 1 << 16

// File is a decoded MAT-file
type File struct {
	// Description is the header text, e.g. "MATLAB 5.0 MAT-file, Platform: ..."
	Description string

	// ByteOrder is the byte order the file was written in
	ByteOrder binary.ByteOrder

	vars    map[string]Value
	names   []string
	skipped map[string]error
}

// Names returns the decoded variable names in file order
func (f *File) Names() []string {
	return append([]string(nil), f.names...)
}

// Var returns the named variable. A variable that was present but could not
// be decoded returns the error recorded for it.
func (f *File) Var(name string) (Value, error) {
	if v, ok := f.vars[name]; ok {
		return v, nil
	}
	if err, ok := f.skipped[name]; ok {
		return nil, err
	}
	return nil, fmt.Errorf("variable %q not found", name)
}

// Has reports whether the named variable was decoded
func (f *File) Has(name string) bool {
	_, ok := f.vars[name]
	return ok
}

// Skipped returns the variables that were present but not decoded, with the
// reason for each
func (f *File) Skipped() map[string]error {
	out := make(map[string]error, len(f.skipped))
	for k, v := range f.skipped {
		out[k] = v
	}
	return out
}

// ClassError reports a variable whose class cannot be decoded
type ClassError struct {
	Name  string
	Class Class
}

func (e *ClassError) Error() string {
	return fmt.Sprintf("%v: %q is %s", ErrUnsupportedClass, e.Name, e.Class)
}

func (e *ClassError) Unwrap() error { return ErrUnsupportedClass }

// ReadFile decodes the MAT-file at path
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	f, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Decode reads a whole MAT-file from r
func Decode(r io.Reader) (*File, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(buf) < headerSize {
		return nil, ErrNotMAT
	}

	f := &File{
		Description: strings.TrimRight(string(buf[:116]), " \x00"),
		vars:        make(map[string]Value),
		skipped:     make(map[string]error),
	}

	switch string(buf[126:128]) {
	case "IM":
		f.ByteOrder = binary.LittleEndian
	case "MI":
		f.ByteOrder = binary.BigEndian
	default:
		return nil, ErrNotMAT
	}
	if strings.HasPrefix(f.Description, "MATLAB 7.3") {
		return nil, fmt.Errorf("%w: 7.3 (HDF5)", ErrUnsupportedVersion)
	}
	if v := f.ByteOrder.Uint16(buf[124:126]); v != 0x0100 {
		return nil, fmt.Errorf("%w: 0x%04x", ErrUnsupportedVersion, v)
	}

	d := &decoder{buf: buf[headerSize:], order: f.ByteOrder}
	if err := d.readVariables(f); err != nil {
		return nil, err
	}
	return f, nil
}

type decoder struct {
	buf   []byte
	off   int
	order binary.ByteOrder
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func (d *decoder) more() bool {
	return d.off < len(d.buf)
}

// element reads the next tagged data element
func (d *decoder) element() (dataType, []byte, error) {
	if len(d.buf)-d.off < 8 {
		return 0, nil, fmt.Errorf("%w: truncated tag at offset %d", ErrCorrupt, d.off)
	}
	w := d.order.Uint32(d.buf[d.off:])

	// small data element: size in the upper 16 bits, data packed in the tag
	if w>>16 != 0 {
		typ, n := dataType(w&0xffff), int(w>>16)
		if n > 4 {
			return 0, nil, fmt.Errorf("%w: small element of %d bytes", ErrCorrupt, n)
		}
		data := d.buf[d.off+4 : d.off+4+n]
		d.off += 8
		return typ, data, nil
	}

	typ := dataType(w)
	n := int(d.order.Uint32(d.buf[d.off+4:]))
	d.off += 8
	if n < 0 || n > len(d.buf)-d.off {
		return 0, nil, fmt.Errorf("%w: element of %d bytes overruns buffer", ErrCorrupt, n)
	}
	data := d.buf[d.off : d.off+n]
	d.off += n
	if typ != miCOMPRESSED {
		d.off += pad8(n)
		if d.off > len(d.buf) {
			d.off = len(d.buf)
		}
	}
	return typ, data, nil
}

func (d *decoder) readVariables(f *File) error {
	for d.more() {
		typ, data, err := d.element()
		if err != nil {
			return err
		}
		switch typ {
		case miCOMPRESSED:
			inflated, err := inflate(data)
			if err != nil {
				return err
			}
			inner := &decoder{buf: inflated, order: d.order}
			if err := inner.readVariables(f); err != nil {
				return err
			}
		case miMATRIX:
			v, err := d.matrix(data)
			if err != nil {
				// an undecodable class only costs its own variable
				if name := d.peekName(data); errors.Is(err, ErrUnsupportedClass) && name != "" {
					f.skipped[name] = err
					continue
				}
				return err
			}
			f.vars[v.VarName()] = v
			f.names = append(f.names, v.VarName())
		}
		// other top-level element types carry no variable
	}
	return nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}

// matrix decodes the body of an miMATRIX element
func (d *decoder) matrix(data []byte) (Value, error) {
	if len(data) == 0 {
		return &Array{Type: ClassDouble, Size: []int{0, 0}}, nil
	}
	sub := &decoder{buf: data, order: d.order}

	typ, flagData, err := sub.element()
	if err != nil {
		return nil, err
	}
	if typ != miUINT32 || len(flagData) < 4 {
		return nil, fmt.Errorf("%w: bad array flags", ErrCorrupt)
	}
	flags := d.order.Uint32(flagData)
	class := Class(flags & 0xff)

	dims, err := sub.ints()
	if err != nil {
		return nil, err
	}
	if len(dims) < 2 {
		return nil, fmt.Errorf("%w: %d dimensions", ErrCorrupt, len(dims))
	}
	_, nameData, err := sub.element()
	if err != nil {
		return nil, err
	}
	name := string(nameData)
	n, ok := checkedNumel(dims)
	if !ok {
		return nil, fmt.Errorf("%w: %q dims %v overflow", ErrCorrupt, name, dims)
	}

	switch {
	case class.IsNumeric():
		arr := &Array{
			Name:    name,
			Size:    dims,
			Type:    class,
			Logical: flags&flagLogical != 0,
			Global:  flags&flagGlobal != 0,
		}
		if arr.Real, err = sub.numbers(n); err != nil {
			return nil, fmt.Errorf("%q real part: %w", name, err)
		}
		if flags&flagComplex != 0 {
			if arr.Imag, err = sub.numbers(n); err != nil {
				return nil, fmt.Errorf("%q imaginary part: %w", name, err)
			}
		}
		return arr, nil

	case class == ClassChar:
		typ, raw, err := sub.element()
		if err != nil {
			return nil, err
		}
		text, err := d.text(typ, raw)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
		return &Char{Name: name, Size: dims, Text: text}, nil

	case class == ClassCell:
		// every cell is a tagged element of at least 8 bytes
		if n > sub.remaining()/8 {
			return nil, fmt.Errorf("%w: %q claims %d cells in %d bytes", ErrCorrupt, name, n, sub.remaining())
		}
		c := &Cell{Name: name, Size: dims, Elems: make([]Value, n)}
		for i := range c.Elems {
			if c.Elems[i], err = sub.child(); err != nil {
				return nil, fmt.Errorf("%q{%d}: %w", name, i, err)
			}
		}
		return c, nil

	case class == ClassStruct:
		fields, err := sub.fieldNames()
		if err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
		if len(fields) == 0 && n > maxFieldlessElems ||
			len(fields) > 0 && n > sub.remaining()/(8*len(fields)) {
			return nil, fmt.Errorf("%w: %q claims %d elements in %d bytes", ErrCorrupt, name, n, sub.remaining())
		}
		s := &Struct{Name: name, Size: dims, Fields: fields, Elems: make([]map[string]Value, n)}
		for i := range s.Elems {
			s.Elems[i] = make(map[string]Value, len(fields))
			for _, field := range fields {
				v, err := sub.child()
				if err != nil {
					return nil, fmt.Errorf("%q(%d).%s: %w", name, i, field, err)
				}
				s.Elems[i][field] = v
			}
		}
		return s, nil
	}

	return nil, &ClassError{Name: name, Class: class}
}

// peekName returns the variable name of an miMATRIX body, or "" if the
// header subelements cannot be read
func (d *decoder) peekName(data []byte) string {
	sub := &decoder{buf: data, order: d.order}
	for i := 0; i < 2; i++ {
		if _, _, err := sub.element(); err != nil {
			return ""
		}
	}
	_, name, err := sub.element()
	if err != nil {
		return ""
	}
	return string(name)
}

// child decodes a nested miMATRIX element of a cell or struct
func (d *decoder) child() (Value, error) {
	typ, data, err := d.element()
	if err != nil {
		return nil, err
	}
	if typ != miMATRIX {
		return nil, fmt.Errorf("%w: nested element type %d", ErrCorrupt, typ)
	}
	return d.matrix(data)
}

func (d *decoder) ints() ([]int, error) {
	typ, data, err := d.element()
	if err != nil {
		return nil, err
	}
	vals, err := convert(typ, data, d.order)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		if v < 0 {
			return nil, fmt.Errorf("%w: negative dimension", ErrCorrupt)
		}
		out[i] = int(v)
	}
	return out, nil
}

func (d *decoder) numbers(n int) ([]float64, error) {
	typ, data, err := d.element()
	if err != nil {
		return nil, err
	}
	vals, err := convert(typ, data, d.order)
	if err != nil {
		return nil, err
	}
	if len(vals) != n {
		return nil, fmt.Errorf("%w: %d values for %d elements", ErrCorrupt, len(vals), n)
	}
	return vals, nil
}

func (d *decoder) fieldNames() ([]string, error) {
	lens, err := d.ints()
	if err != nil {
		return nil, err
	}
	if len(lens) != 1 || lens[0] <= 0 {
		return nil, fmt.Errorf("%w: bad field name length", ErrCorrupt)
	}
	width := lens[0]
	_, raw, err := d.element()
	if err != nil {
		return nil, err
	}
	if len(raw)%width != 0 {
		return nil, fmt.Errorf("%w: field names not a multiple of %d", ErrCorrupt, width)
	}
	names := make([]string, 0, len(raw)/width)
	for i := 0; i < len(raw); i += width {
		names = append(names, strings.TrimRight(string(raw[i:i+width]), "\x00"))
	}
	return names, nil
}

func (d *decoder) text(typ dataType, raw []byte) (string, error) {
	switch typ {
	case miUTF8, miINT8, miUINT8:
		return string(raw), nil
	case miUTF16, miUINT16, miINT16:
		if len(raw)%2 != 0 {
			return "", fmt.Errorf("%w: odd UTF-16 length", ErrCorrupt)
		}
		units := make([]uint16, len(raw)/2)
		for i := range units {
			units[i] = d.order.Uint16(raw[2*i:])
		}
		return string(utf16.Decode(units)), nil
	case miUTF32, miUINT32, miINT32:
		if len(raw)%4 != 0 {
			return "", fmt.Errorf("%w: bad UTF-32 length", ErrCorrupt)
		}
		runes := make([]rune, len(raw)/4)
		for i := range runes {
			runes[i] = rune(d.order.Uint32(raw[4*i:]))
		}
		return string(runes), nil
	}
	return "", fmt.Errorf("%w: char data of type %d", ErrCorrupt, typ)
}

// convert widens any numeric element to float64
func convert(typ dataType, raw []byte, order binary.ByteOrder) ([]float64, error) {
	size := typ.size()
	if size == 0 {
		return nil, fmt.Errorf("%w: non-numeric element type %d", ErrCorrupt, typ)
	}
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrCorrupt, len(raw), size)
	}
	out := make([]float64, len(raw)/size)
	for i := range out {
		b := raw[i*size:]
		switch typ {
		case miINT8:
			out[i] = float64(int8(b[0]))
		case miUINT8, miUTF8:
			out[i] = float64(b[0])
		case miINT16:
			out[i] = float64(int16(order.Uint16(b)))
		case miUINT16, miUTF16:
			out[i] = float64(order.Uint16(b))
		case miINT32:
			out[i] = float64(int32(order.Uint32(b)))
		case miUINT32, miUTF32:
			out[i] = float64(order.Uint32(b))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(order.Uint32(b)))
		case miDOUBLE:
			out[i] = math.Float64frombits(order.Uint64(b))
		case miINT64:
			out[i] = float64(int64(order.Uint64(b)))
		case miUINT64:
			out[i] = float64(order.Uint64(b))
		}
	}
	return out, nil
}

func pad8(n int) int {
	if r := n % 8; r != 0 {
		return 8 - r
	}
	return 0
}
