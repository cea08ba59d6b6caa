package imgmeta

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	jpegMarkerAPP13 = 0xED
	jpegMarkerSOS   = 0xDA
	jpegMarkerEOI   = 0xD9

	photoshopHeader  = "Photoshop 3.0\x00"
	iptcResourceID   = 0x0404
	iptcDateCreated  = 55
	iptcTimeCreated  = 60
	iptcDatasetToken = 0x1C
)

// iptcTakenMs extracts DateCreated (2:55) and TimeCreated (2:60) from the
// IPTC IIM block carried in a JPEG APP13 Photoshop segment. TimeCreated
// defaults to midnight when absent.
func iptcTakenMs(r io.Reader) (int64, bool) {
	seg, ok := findJPEGSegment(r, jpegMarkerAPP13)
	if !ok || !bytes.HasPrefix(seg, []byte(photoshopHeader)) {
		return 0, false
	}
	iim, ok := photoshopResource(seg[len(photoshopHeader):], iptcResourceID)
	if !ok {
		return 0, false
	}

	date, clock := "", "000000"
	for off := 0; off+5 <= len(iim); {
		if iim[off] != iptcDatasetToken {
			break
		}
		record, dataset := iim[off+1], iim[off+2]
		n := int(binary.BigEndian.Uint16(iim[off+3 : off+5]))
		off += 5
		if off+n > len(iim) {
			break
		}
		val := string(iim[off : off+n])
		off += n
		if record != 2 {
			continue
		}
		switch dataset {
		case iptcDateCreated:
			date = val
		case iptcTimeCreated:
			clock = val
		}
	}
	if len(date) < 8 || len(clock) < 6 {
		return 0, false
	}
	// DateCreated is YYYYMMDD, TimeCreated HHMMSS with an optional zone
	// suffix that is ignored here.
	iso := fmt.Sprintf("%s-%s-%s %s:%s:%s",
		date[:4], date[4:6], date[6:8],
		clock[:2], clock[2:4], clock[4:6])
	return ParseDate(iso)
}

// findJPEGSegment walks the marker segments of a JPEG stream and returns the
// payload of the first segment with the given marker. The walk stops at SOS,
// since metadata segments always precede the entropy-coded data.
func findJPEGSegment(r io.Reader, marker byte) ([]byte, bool) {
	br := bufio.NewReader(r)
	var soi [2]byte
	if _, err := io.ReadFull(br, soi[:]); err != nil || soi[0] != 0xFF || soi[1] != 0xD8 {
		return nil, false
	}
	for {
		b, err := br.ReadByte()
		if err != nil || b != 0xFF {
			return nil, false
		}
		m, err := br.ReadByte()
		for err == nil && m == 0xFF {
			m, err = br.ReadByte()
		}
		if err != nil {
			return nil, false
		}
		if m == 0x01 || (m >= 0xD0 && m <= 0xD7) {
			continue
		}
		if m == jpegMarkerSOS || m == jpegMarkerEOI {
			return nil, false
		}
		var lenBuf [2]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return nil, false
		}
		n := int(binary.BigEndian.Uint16(lenBuf[:])) - 2
		if n < 0 {
			return nil, false
		}
		if m == marker {
			payload := make([]byte, n)
			if _, err := io.ReadFull(br, payload); err != nil {
				return nil, false
			}
			return payload, true
		}
		if _, err := io.CopyN(io.Discard, br, int64(n)); err != nil {
			return nil, false
		}
	}
}

// photoshopResource walks the 8BIM image resource blocks in data and returns
// the payload of the resource with the given ID.
func photoshopResource(data []byte, id uint16) ([]byte, bool) {
	for off := 0; off+12 <= len(data); {
		if !bytes.Equal(data[off:off+4], []byte("8BIM")) {
			return nil, false
		}
		resID := binary.BigEndian.Uint16(data[off+4 : off+6])
		off += 6
		// Pascal-style resource name, padded to an even byte count.
		nameLen := int(data[off])
		off += 1 + nameLen
		if (nameLen+1)%2 == 1 {
			off++
		}
		if off+4 > len(data) {
			return nil, false
		}
		size := int(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
		if off+size > len(data) {
			return nil, false
		}
		if resID == id {
			return data[off : off+size], true
		}
		off += size
		if size%2 == 1 {
			off++
		}
	}
	return nil, false
}
