package cpu

import (
	"encoding/binary"
	"io"
)

// Image is an LC-3 object image: the words to load, and where to load them.
//
// The file format is a big-endian origin word followed by big-endian
// program words.
type Image struct {
	Origin uint16
	Words  []uint16
}

// ReadImage reads an object image.
func ReadImage(r io.Reader) (img *Image, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return
	}

	if len(data) < 2 {
		err = ErrImageShort
		return
	}

	if (len(data) % 2) != 0 {
		err = ErrImageOdd
		return
	}

	origin := binary.BigEndian.Uint16(data)
	data = data[2:]

	count := len(data) / 2
	if int(origin)+count > MEMORY_SIZE {
		err = ErrImageOverflow
		return
	}

	img = &Image{
		Origin: origin,
		Words:  make([]uint16, count),
	}
	for n := range img.Words {
		img.Words[n] = binary.BigEndian.Uint16(data[n*2:])
	}

	return
}

// WriteTo writes the object image to w.
func (img *Image) WriteTo(w io.Writer) (n int64, err error) {
	buf := make([]byte, 0, 2+len(img.Words)*2)
	buf = binary.BigEndian.AppendUint16(buf, img.Origin)
	for _, word := range img.Words {
		buf = binary.BigEndian.AppendUint16(buf, word)
	}

	written, err := w.Write(buf)
	n = int64(written)

	return
}

// End returns the address after the last word of the image.
func (img *Image) End() int {
	return int(img.Origin) + len(img.Words)
}
