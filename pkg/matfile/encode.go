package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"
	"unicode/utf16"
)

// Encoder writes little-endian Level 5 MAT-files
type Encoder struct {
	w        io.Writer
	compress bool
	started  bool
	now      func() time.Time
}

// EncoderOption configures an Encoder
type EncoderOption func(*Encoder)

// WithCompression stores each variable in a zlib-compressed element, the
// way MATLAB's default -v7 format does
func WithCompression() EncoderOption {
	return func(e *Encoder) { e.compress = true }
}

// NewEncoder returns an encoder writing to w. The header is written with the
// first variable.
func NewEncoder(w io.Writer, opts ...EncoderOption) *Encoder {
	e := &Encoder{w: w, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var le = binary.LittleEndian

// Encode appends one top-level variable. The variable must be named.
func (e *Encoder) Encode(v Value) error {
	if v.VarName() == "" {
		return fmt.Errorf("top-level variable must be named")
	}
	if !e.started {
		if err := e.header(); err != nil {
			return err
		}
		e.started = true
	}

	var body bytes.Buffer
	if err := writeMatrix(&body, v); err != nil {
		return fmt.Errorf("encode %q: %w", v.VarName(), err)
	}
	if !e.compress {
		_, err := e.w.Write(body.Bytes())
		return err
	}

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(body.Bytes()); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	var tag [8]byte
	le.PutUint32(tag[0:], uint32(miCOMPRESSED))
	le.PutUint32(tag[4:], uint32(z.Len()))
	if _, err := e.w.Write(tag[:]); err != nil {
		return err
	}
	_, err := e.w.Write(z.Bytes())
	return err
}

// Close writes the header if no variable was encoded, so that the output is
// always a valid MAT-file
func (e *Encoder) Close() error {
	if e.started {
		return nil
	}
	e.started = true
	return e.header()
}

func (e *Encoder) header() error {
	var h [headerSize]byte
	text := fmt.Sprintf("MATLAB 5.0 MAT-file, Platform: GLNXA64, Created on: %s",
		e.now().Format("Mon Jan 02 15:04:05 2006"))
	copy(h[:116], text)
	for i := len(text); i < 116; i++ {
		h[i] = ' '
	}
	le.PutUint16(h[124:], 0x0100)
	copy(h[126:], "IM")
	_, err := e.w.Write(h[:])
	return err
}

// WriteFile writes vars to path, replacing any existing file
func WriteFile(path string, vars []Value, opts ...EncoderOption) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := NewEncoder(fh, opts...)
	for _, v := range vars {
		if err := enc.Encode(v); err != nil {
			fh.Close()
			return err
		}
	}
	if err := enc.Close(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func writeElement(w *bytes.Buffer, typ dataType, data []byte) {
	var tag [8]byte
	if len(data) <= 4 && typ != miMATRIX {
		le.PutUint32(tag[0:], uint32(len(data))<<16|uint32(typ))
		copy(tag[4:], data)
		w.Write(tag[:])
		return
	}
	le.PutUint32(tag[0:], uint32(typ))
	le.PutUint32(tag[4:], uint32(len(data)))
	w.Write(tag[:])
	w.Write(data)
	w.Write(make([]byte, pad8(len(data))))
}

func writeMatrix(w *bytes.Buffer, v Value) error {
	var (
		class   = v.Class()
		dims    = v.Dims()
		flags   uint32
		content bytes.Buffer
	)

	switch x := v.(type) {
	case *Array:
		if class == 0 {
			class = ClassDouble
		}
		if !class.IsNumeric() {
			return fmt.Errorf("%w: array of class %s", ErrUnsupportedClass, class)
		}
		if dims == nil {
			dims = []int{len(x.Real), 1}
		}
		if numel(dims) != len(x.Real) {
			return fmt.Errorf("%d values for dims %v", len(x.Real), dims)
		}
		storage := class.storage()
		if x.Logical {
			class, storage = ClassUint8, miUINT8
			flags |= flagLogical
		}
		if x.Global {
			flags |= flagGlobal
		}
		writeElement(&content, storage, pack(storage, x.Real))
		if x.Imag != nil {
			if len(x.Imag) != len(x.Real) {
				return fmt.Errorf("imaginary part has %d values, real part %d", len(x.Imag), len(x.Real))
			}
			flags |= flagComplex
			writeElement(&content, storage, pack(storage, x.Imag))
		}

	case *Char:
		units := utf16.Encode([]rune(x.Text))
		if dims == nil {
			dims = []int{1, len(units)}
		}
		if numel(dims) != len(units) {
			return fmt.Errorf("%d characters for dims %v", len(units), dims)
		}
		raw := make([]byte, 2*len(units))
		for i, u := range units {
			le.PutUint16(raw[2*i:], u)
		}
		writeElement(&content, miUINT16, raw)

	case *Cell:
		if dims == nil {
			dims = []int{1, len(x.Elems)}
		}
		if numel(dims) != len(x.Elems) {
			return fmt.Errorf("%d cells for dims %v", len(x.Elems), dims)
		}
		for i, el := range x.Elems {
			if err := writeMatrix(&content, unnamed(el)); err != nil {
				return fmt.Errorf("cell %d: %w", i, err)
			}
		}

	case *Struct:
		if dims == nil {
			dims = []int{1, len(x.Elems)}
		}
		if numel(dims) != len(x.Elems) {
			return fmt.Errorf("%d struct elements for dims %v", len(x.Elems), dims)
		}
		width := 1
		for _, f := range x.Fields {
			if len(f)+1 > width {
				width = len(f) + 1
			}
		}
		writeElement(&content, miINT32, pack(miINT32, []float64{float64(width)}))
		names := make([]byte, width*len(x.Fields))
		for i, f := range x.Fields {
			copy(names[i*width:], f)
		}
		writeElement(&content, miINT8, names)
		for i, el := range x.Elems {
			for _, f := range x.Fields {
				fv, ok := el[f]
				if !ok {
					fv = &Array{Type: ClassDouble, Size: []int{0, 0}}
				}
				if err := writeMatrix(&content, unnamed(fv)); err != nil {
					return fmt.Errorf("element %d field %s: %w", i, f, err)
				}
			}
		}

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedClass, v)
	}

	var body bytes.Buffer
	flagData := make([]byte, 8)
	le.PutUint32(flagData, flags|uint32(class))
	writeElement(&body, miUINT32, flagData)
	dimVals := make([]float64, len(dims))
	for i, d := range dims {
		dimVals[i] = float64(d)
	}
	writeElement(&body, miINT32, pack(miINT32, dimVals))
	writeElement(&body, miINT8, []byte(v.VarName()))
	body.Write(content.Bytes())

	writeElement(w, miMATRIX, body.Bytes())
	return nil
}

// unnamed strips the name from a nested value; nested arrays carry none
func unnamed(v Value) Value {
	switch x := v.(type) {
	case *Array:
		c := *x
		c.Name = ""
		return &c
	case *Char:
		c := *x
		c.Name = ""
		return &c
	case *Cell:
		c := *x
		c.Name = ""
		return &c
	case *Struct:
		c := *x
		c.Name = ""
		return &c
	}
	return v
}

// pack narrows float64 values to the on-disk element type
func pack(typ dataType, vals []float64) []byte {
	size := typ.size()
	out := make([]byte, size*len(vals))
	for i, v := range vals {
		b := out[i*size:]
		switch typ {
		case miINT8:
			b[0] = byte(int8(v))
		case miUINT8:
			b[0] = byte(v)
		case miINT16:
			le.PutUint16(b, uint16(int16(v)))
		case miUINT16:
			le.PutUint16(b, uint16(v))
		case miINT32:
			le.PutUint32(b, uint32(int32(v)))
		case miUINT32:
			le.PutUint32(b, uint32(v))
		case miSINGLE:
			le.PutUint32(b, math.Float32bits(float32(v)))
		case miDOUBLE:
			le.PutUint64(b, math.Float64bits(v))
		case miINT64:
			le.PutUint64(b, uint64(int64(v)))
		case miUINT64:
			le.PutUint64(b, uint64(v))
		}
	}
	return out
}
