package imaging

import (
	"bytes"
	"encoding/binary"
)

// orientationTag is the standard EXIF IFD0 tag carrying the capture
// orientation (values 1..8, TIFF-style). Only this single tag is decoded: a
// minimal, focused walk of the TIFF/IFD structure rather than a full
// metadata library, since normalization only ever needs this one value.
const orientationTag = 0x0112

// readOrientation scans raw JPEG bytes for an APP1 "Exif\x00\x00" segment
// and returns the orientation tag's value, or 1 (no rotation) if absent or
// unparseable. A malformed or missing EXIF block is never an error here —
// orientation correction degrades silently to "assume upright".
func readOrientation(jpegData []byte) int {
	idx := bytes.Index(jpegData, []byte("Exif\x00\x00"))
	if idx < 0 {
		return 1
	}
	tiff := jpegData[idx+6:]
	if len(tiff) < 8 {
		return 1
	}

	var order binary.ByteOrder
	switch {
	case bytes.HasPrefix(tiff, []byte("II")):
		order = binary.LittleEndian
	case bytes.HasPrefix(tiff, []byte("MM")):
		order = binary.BigEndian
	default:
		return 1
	}

	ifd0Offset := order.Uint32(tiff[4:8])
	if int(ifd0Offset)+2 > len(tiff) {
		return 1
	}

	entryCount := order.Uint16(tiff[ifd0Offset : ifd0Offset+2])
	base := ifd0Offset + 2
	const entrySize = 12
	for i := 0; i < int(entryCount); i++ {
		off := int(base) + i*entrySize
		if off+entrySize > len(tiff) {
			break
		}
		entry := tiff[off : off+entrySize]
		tag := order.Uint16(entry[0:2])
		if tag != orientationTag {
			continue
		}
		valType := order.Uint16(entry[2:4])
		if valType != 3 { // SHORT
			return 1
		}
		val := order.Uint16(entry[8:10])
		if val < 1 || val > 8 {
			return 1
		}
		return int(val)
	}
	return 1
}
