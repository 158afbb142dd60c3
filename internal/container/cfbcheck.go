package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/hanpama/hwarang/internal/hwperr"
)

const (
	endOfChain = 0xFFFFFFFE

	miniSectorSize = 64
	miniCutoff     = 4096
	dirEntrySize   = 128

	objStream = 2
)

// chainChecker validates every sector chain of a compound file before the
// file is handed to mscfb. Work is linear in the sector count and fails on
// out-of-range sectors and revisits.
type chainChecker struct {
	ra         io.ReaderAt
	size       int64
	major      uint16
	sectorSize int64
	numSectors uint32
	fat        []uint32
	miniFat    []uint32
}

type dirEntry struct {
	name  string
	typ   byte
	start uint32
	size  int64
}

func checkChains(ra io.ReaderAt, size int64) error {
	hdr := make([]byte, 512)
	if _, err := ra.ReadAt(hdr, 0); err != nil {
		return hwperr.Wrap(hwperr.KindParse, "compound file header truncated", err)
	}

	c := &chainChecker{ra: ra, size: size, major: binary.LittleEndian.Uint16(hdr[26:28])}
	switch shift := binary.LittleEndian.Uint16(hdr[30:32]); shift {
	case 9, 12:
		c.sectorSize = 1 << shift
	default:
		return hwperr.Parsef("compound file: illegal sector shift %d", shift)
	}
	if size < c.sectorSize {
		return hwperr.Parse("compound file shorter than one sector")
	}
	c.numSectors = uint32((size - 1) / c.sectorSize)

	if err := c.loadFAT(hdr); err != nil {
		return err
	}

	dirChain, err := c.walk(binary.LittleEndian.Uint32(hdr[48:52]), c.fat, c.numSectors, "directory")
	if err != nil {
		return err
	}
	entries, err := c.readDirectory(dirChain)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return hwperr.Parse("compound file: empty directory")
	}

	miniSectors, err := c.loadMiniFAT(hdr, entries[0])
	if err != nil {
		return err
	}

	var fatLengths, miniLengths []int64
	for _, e := range entries {
		if e.typ != objStream || e.size == 0 {
			continue
		}
		if e.size > size {
			return &hwperr.Error{Kind: hwperr.KindParse, Offset: -1, Stream: e.name,
				Detail: fmt.Sprintf("declared size %d exceeds container size %d", e.size, size)}
		}
		var lengths []int64
		var unit int64
		if e.size < miniCutoff {
			if miniLengths == nil {
				miniLengths = chainLengths(c.miniFat, miniSectors)
			}
			lengths, unit = miniLengths, miniSectorSize
		} else {
			if fatLengths == nil {
				fatLengths = chainLengths(c.fat, c.numSectors)
			}
			lengths, unit = fatLengths, c.sectorSize
		}
		if err := checkStreamChain(e, lengths, unit); err != nil {
			return err
		}
	}
	return nil
}

const (
	chainUnknown    = 0
	chainOutOfRange = -1
	chainCycle      = -2
	chainOnPath     = -3
)

// chainLengths returns, for every sector below limit, the number of sectors
// from it to ENDOFCHAIN, or a negative code when the chain leaves the table
// or loops. Every sector is followed once, so streams sharing a chain cost
// nothing extra.
func chainLengths(table []uint32, limit uint32) []int64 {
	n := min(int(limit), len(table))
	lengths := make([]int64, n)
	var path []uint32
	for s := 0; s < n; s++ {
		if lengths[s] != chainUnknown {
			continue
		}
		path = path[:0]
		var tail int64
		for sn := uint32(s); sn != endOfChain; sn = table[sn] {
			if int(sn) >= n {
				tail = chainOutOfRange
				break
			}
			l := lengths[sn]
			if l == chainOnPath {
				tail = chainCycle
				break
			}
			if l != chainUnknown {
				tail = l
				break
			}
			lengths[sn] = chainOnPath
			path = append(path, sn)
		}
		for i := len(path) - 1; i >= 0; i-- {
			if tail >= 0 {
				tail++
			}
			lengths[path[i]] = tail
		}
	}
	return lengths
}

func checkStreamChain(e dirEntry, lengths []int64, unit int64) error {
	fail := func(format string, args ...any) error {
		return &hwperr.Error{Kind: hwperr.KindParse, Offset: -1, Stream: e.name,
			Detail: fmt.Sprintf(format, args...)}
	}
	if int64(e.start) >= int64(len(lengths)) {
		return fail("sector %d out of range", e.start)
	}
	switch l := lengths[e.start]; {
	case l == chainOutOfRange:
		return fail("sector chain from %d leaves the file", e.start)
	case l == chainCycle:
		return fail("cyclic sector chain from sector %d", e.start)
	case l*unit < e.size:
		return fail("sector chain holds %d bytes, stream declares %d", l*unit, e.size)
	}
	return nil
}

func (c *chainChecker) loadFAT(hdr []byte) error {
	numFat := binary.LittleEndian.Uint32(hdr[44:48])
	if numFat > c.numSectors {
		return hwperr.Parsef("compound file: %d FAT sectors in a %d sector file", numFat, c.numSectors)
	}

	locs := make([]uint32, 0, numFat)
	for i := 0; i < 109 && uint32(len(locs)) < numFat; i++ {
		locs = append(locs, binary.LittleEndian.Uint32(hdr[76+i*4:]))
	}

	perSector := int(c.sectorSize/4) - 1
	difat := binary.LittleEndian.Uint32(hdr[68:72])
	seen := make(map[uint32]bool)
	for uint32(len(locs)) < numFat {
		if difat >= c.numSectors || seen[difat] {
			return hwperr.Parsef("compound file: bad DIFAT sector %d", difat)
		}
		seen[difat] = true
		buf, err := c.sector(difat)
		if err != nil {
			return err
		}
		for i := 0; i < perSector && uint32(len(locs)) < numFat; i++ {
			locs = append(locs, binary.LittleEndian.Uint32(buf[i*4:]))
		}
		difat = binary.LittleEndian.Uint32(buf[perSector*4:])
	}

	c.fat = make([]uint32, 0, len(locs)*int(c.sectorSize/4))
	for _, loc := range locs {
		if loc >= c.numSectors {
			return hwperr.Parsef("compound file: FAT sector %d out of range", loc)
		}
		buf, err := c.sector(loc)
		if err != nil {
			return err
		}
		for i := 0; i+4 <= len(buf); i += 4 {
			c.fat = append(c.fat, binary.LittleEndian.Uint32(buf[i:]))
		}
	}
	return nil
}

// loadMiniFAT reads the mini FAT and returns the number of mini sectors held
// by the root entry's mini stream.
func (c *chainChecker) loadMiniFAT(hdr []byte, root dirEntry) (uint32, error) {
	start := binary.LittleEndian.Uint32(hdr[60:64])
	if binary.LittleEndian.Uint32(hdr[64:68]) == 0 || start == endOfChain {
		return 0, nil
	}
	chain, err := c.walk(start, c.fat, c.numSectors, "mini FAT")
	if err != nil {
		return 0, err
	}
	for _, sn := range chain {
		buf, err := c.sector(sn)
		if err != nil {
			return 0, err
		}
		for i := 0; i+4 <= len(buf); i += 4 {
			c.miniFat = append(c.miniFat, binary.LittleEndian.Uint32(buf[i:]))
		}
	}

	if root.start == endOfChain {
		return 0, nil
	}
	stream, err := c.walk(root.start, c.fat, c.numSectors, "mini stream")
	if err != nil {
		return 0, err
	}
	return uint32(int64(len(stream)) * c.sectorSize / miniSectorSize), nil
}

func (c *chainChecker) readDirectory(chain []uint32) ([]dirEntry, error) {
	var entries []dirEntry
	for _, sn := range chain {
		buf, err := c.sector(sn)
		if err != nil {
			return nil, err
		}
		for off := 0; off+dirEntrySize <= len(buf); off += dirEntrySize {
			entries = append(entries, c.parseDirEntry(buf[off:off+dirEntrySize]))
		}
	}
	return entries, nil
}

func (c *chainChecker) parseDirEntry(b []byte) dirEntry {
	e := dirEntry{
		typ:   b[66],
		start: binary.LittleEndian.Uint32(b[116:120]),
	}
	if c.major > 3 {
		e.size = int64(binary.LittleEndian.Uint64(b[120:128]))
	} else {
		e.size = int64(binary.LittleEndian.Uint32(b[120:124]))
	}
	if e.size < 0 {
		e.size = c.size + 1
	}

	nameLen := int(binary.LittleEndian.Uint16(b[64:66]))
	if nameLen >= 2 && nameLen <= 64 {
		units := make([]uint16, nameLen/2-1)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(b[i*2:])
		}
		e.name = string(utf16.Decode(units))
	}
	return e
}

// walk follows a chain from start through table. The walk ends at
// ENDOFCHAIN and never visits more than limit sectors.
func (c *chainChecker) walk(start uint32, table []uint32, limit uint32, name string) ([]uint32, error) {
	var chain []uint32
	seen := make(map[uint32]bool)
	for sn := start; sn != endOfChain; sn = table[sn] {
		if sn >= limit || int(sn) >= len(table) {
			return nil, &hwperr.Error{Kind: hwperr.KindParse, Offset: -1, Stream: name,
				Detail: fmt.Sprintf("sector %d out of range", sn)}
		}
		if seen[sn] {
			return nil, &hwperr.Error{Kind: hwperr.KindParse, Offset: -1, Stream: name,
				Detail: fmt.Sprintf("cyclic sector chain at sector %d", sn)}
		}
		seen[sn] = true
		chain = append(chain, sn)
	}
	return chain, nil
}

func (c *chainChecker) sector(sn uint32) ([]byte, error) {
	buf := make([]byte, c.sectorSize)
	off := (int64(sn) + 1) * c.sectorSize
	if _, err := c.ra.ReadAt(buf, off); err != nil {
		return nil, hwperr.Wrap(hwperr.KindParse, fmt.Sprintf("compound file: read sector %d", sn), err)
	}
	return buf, nil
}
