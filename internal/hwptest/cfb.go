// Package hwptest builds HWP and HWPX documents in memory for tests.
package hwptest

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"
)

const (
	sectorSize     = 512
	miniSector     = 64
	miniCutoff     = 4096
	entriesPerSect = sectorSize / 128
	idsPerSect     = sectorSize / 4

	endOfChain = 0xFFFFFFFE
	freeSect   = 0xFFFFFFFF
	fatSect    = 0xFFFFFFFD
	noStream   = 0xFFFFFFFF
)

// Stream is a named stream; "/" in Name creates storages.
type Stream struct {
	Name string
	Data []byte
}

type node struct {
	name     string
	typ      byte
	data     []byte
	children []int
	child    uint32
	right    uint32
	start    uint32
	size     uint32
}

// CompoundFile writes a version 3 compound file holding streams.
// Streams smaller than 4096 bytes go to the mini stream. Siblings are chained
// in the order given, so readers that walk the tree see that order.
//
// Sector layout: FAT, directory, mini FAT, mini stream, then regular streams.
func CompoundFile(streams ...Stream) []byte {
	nodes := []*node{{name: "Root Entry", typ: 5}}
	storages := map[string]int{"": 0}

	parentOf := func(path []string) int {
		parent := 0
		for i := range path {
			key := strings.Join(path[:i+1], "/")
			idx, ok := storages[key]
			if !ok {
				nodes = append(nodes, &node{name: path[i], typ: 1})
				idx = len(nodes) - 1
				nodes[parent].children = append(nodes[parent].children, idx)
				storages[key] = idx
			}
			parent = idx
		}
		return parent
	}

	for _, s := range streams {
		parts := strings.Split(s.Name, "/")
		parent := parentOf(parts[:len(parts)-1])
		nodes = append(nodes, &node{name: parts[len(parts)-1], typ: 2, data: s.Data})
		nodes[parent].children = append(nodes[parent].children, len(nodes)-1)
	}

	for _, n := range nodes {
		n.child, n.right = noStream, noStream
	}
	for _, n := range nodes {
		if len(n.children) == 0 {
			continue
		}
		n.child = uint32(n.children[0])
		for i := 0; i+1 < len(n.children); i++ {
			nodes[n.children[i]].right = uint32(n.children[i+1])
		}
	}

	var mini []byte
	var miniChains [][2]uint32 // start, count
	var big []*node
	for _, n := range nodes {
		if n.typ != 2 {
			continue
		}
		n.size = uint32(len(n.data))
		switch {
		case len(n.data) == 0:
			n.start = endOfChain
		case len(n.data) < miniCutoff:
			n.start = uint32(len(mini) / miniSector)
			count := uint32(ceilDiv(len(n.data), miniSector))
			miniChains = append(miniChains, [2]uint32{n.start, count})
			mini = append(mini, pad(n.data, miniSector)...)
		default:
			big = append(big, n)
		}
	}

	nDir := ceilDiv(len(nodes), entriesPerSect)
	nMiniSectors := len(mini) / miniSector
	nMiniFat := ceilDiv(nMiniSectors, idsPerSect)
	nMiniStream := ceilDiv(len(mini), sectorSize)
	nBig := 0
	for _, n := range big {
		nBig += ceilDiv(len(n.data), sectorSize)
	}
	nonFat := nDir + nMiniFat + nMiniStream + nBig
	nFat := 1
	for nFat*idsPerSect < nFat+nonFat {
		nFat++
	}

	fat := make([]uint32, nFat*idsPerSect)
	for i := range fat {
		fat[i] = freeSect
	}
	next := uint32(0)
	alloc := func(count int) uint32 {
		start := next
		for i := 0; i < count; i++ {
			if i == count-1 {
				fat[next] = endOfChain
			} else {
				fat[next] = next + 1
			}
			next++
		}
		return start
	}
	for i := 0; i < nFat; i++ {
		fat[next] = fatSect
		next++
	}
	dirStart := alloc(nDir)
	miniFatStart := uint32(endOfChain)
	if nMiniFat > 0 {
		miniFatStart = alloc(nMiniFat)
	}
	root := nodes[0]
	root.start = endOfChain
	if nMiniStream > 0 {
		root.start = alloc(nMiniStream)
		root.size = uint32(len(mini))
	}
	for _, n := range big {
		n.start = alloc(ceilDiv(len(n.data), sectorSize))
	}

	miniFat := make([]uint32, nMiniFat*idsPerSect)
	for i := range miniFat {
		miniFat[i] = freeSect
	}
	for _, c := range miniChains {
		for i := uint32(0); i < c[1]; i++ {
			if i == c[1]-1 {
				miniFat[c[0]+i] = endOfChain
			} else {
				miniFat[c[0]+i] = c[0] + i + 1
			}
		}
	}

	out := make([]byte, 0, (1+int(next))*sectorSize)
	out = append(out, header(nFat, dirStart, miniFatStart, nMiniFat)...)
	out = append(out, uint32s(fat)...)

	dir := make([]byte, nDir*sectorSize)
	for i := 0; i < nDir*entriesPerSect; i++ {
		e := dir[i*128 : (i+1)*128]
		if i >= len(nodes) {
			binary.LittleEndian.PutUint32(e[68:], noStream)
			binary.LittleEndian.PutUint32(e[72:], noStream)
			binary.LittleEndian.PutUint32(e[76:], noStream)
			continue
		}
		writeEntry(e, nodes[i])
	}
	out = append(out, dir...)
	out = append(out, uint32s(miniFat)...)
	out = append(out, pad(mini, sectorSize)...)
	for _, n := range big {
		out = append(out, pad(n.data, sectorSize)...)
	}
	return out
}

func header(nFat int, dirStart, miniFatStart uint32, nMiniFat int) []byte {
	h := make([]byte, sectorSize)
	copy(h, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	binary.LittleEndian.PutUint16(h[24:], 0x3E)
	binary.LittleEndian.PutUint16(h[26:], 3)
	binary.LittleEndian.PutUint16(h[28:], 0xFFFE)
	binary.LittleEndian.PutUint16(h[30:], 9)
	binary.LittleEndian.PutUint16(h[32:], 6)
	binary.LittleEndian.PutUint32(h[44:], uint32(nFat))
	binary.LittleEndian.PutUint32(h[48:], dirStart)
	binary.LittleEndian.PutUint32(h[56:], miniCutoff)
	binary.LittleEndian.PutUint32(h[60:], miniFatStart)
	binary.LittleEndian.PutUint32(h[64:], uint32(nMiniFat))
	binary.LittleEndian.PutUint32(h[68:], endOfChain)
	for i := 0; i < 109; i++ {
		v := uint32(freeSect)
		if i < nFat {
			v = uint32(i)
		}
		binary.LittleEndian.PutUint32(h[76+i*4:], v)
	}
	return h
}

func writeEntry(e []byte, n *node) {
	units := utf16.Encode([]rune(n.name))
	for i, u := range units {
		binary.LittleEndian.PutUint16(e[i*2:], u)
	}
	binary.LittleEndian.PutUint16(e[64:], uint16((len(units)+1)*2))
	e[66] = n.typ
	e[67] = 1
	binary.LittleEndian.PutUint32(e[68:], noStream)
	binary.LittleEndian.PutUint32(e[72:], n.right)
	binary.LittleEndian.PutUint32(e[76:], n.child)
	binary.LittleEndian.PutUint32(e[116:], n.start)
	binary.LittleEndian.PutUint32(e[120:], n.size)
}

func uint32s(vs []uint32) []byte {
	b := make([]byte, len(vs)*4)
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return b
}

func pad(b []byte, unit int) []byte {
	out := make([]byte, ceilDiv(len(b), unit)*unit)
	copy(out, b)
	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
