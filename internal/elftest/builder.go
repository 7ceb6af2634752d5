// Package elftest builds minimal synthetic 32-bit ARM ELF objects and
// attribute sections for tests.
package elftest

import (
	"bytes"
	"encoding/binary"
)

const (
	// MachineARM is the ELF machine number for 32-bit ARM (EM_ARM).
	MachineARM = 40

	// SectionTypeARMAttributes is SHT_ARM_ATTRIBUTES.
	SectionTypeARMAttributes = 0x70000003

	// HeaderSize is the size of an Elf32_Ehdr.
	HeaderSize = 52

	// SectionHeaderSize is the size of an Elf32_Shdr.
	SectionHeaderSize = 40

	// Offsets of header fields tests like to corrupt.
	OffsetMachine   = 18
	OffsetShoff     = 32
	OffsetShentsize = 46
)

type header struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	Phoff     uint32
	Shoff     uint32
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

type section struct {
	Name      uint32
	Type      uint32
	Flags     uint32
	Addr      uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	Addralign uint32
	Entsize   uint32
}

// ULEB128 encodes v as an unsigned little-endian base-128 value.
func ULEB128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// NTBS encodes s as a null-terminated byte string.
func NTBS(s string) []byte {
	return append([]byte(s), 0)
}

// Subsection builds one vendor subsection: a 4-byte little-endian
// length counting itself, the vendor name, and the payload.
func Subsection(vendor string, payload []byte) []byte {
	name := NTBS(vendor)
	length := 4 + len(name) + len(payload)

	out := make([]byte, 0, length)
	out = binary.LittleEndian.AppendUint32(out, uint32(length))
	out = append(out, name...)
	return append(out, payload...)
}

// AttributesSection prefixes the given subsections with the 'A'
// format-version byte.
func AttributesSection(subsections ...[]byte) []byte {
	out := []byte{'A'}
	for _, sub := range subsections {
		out = append(out, sub...)
	}
	return out
}

// Build lays out a relocatable ELF32 object for the given machine with
// one ARM-attributes section per given content, followed by the
// section header table (a null entry plus one entry per section).
func Build(machine uint16, attrSections ...[]byte) []byte {
	shoff := HeaderSize
	offsets := make([]int, len(attrSections))
	for i, content := range attrSections {
		offsets[i] = shoff
		shoff += len(content)
	}

	hdr := header{
		Type:      1, // ET_REL
		Machine:   machine,
		Version:   1,
		Shoff:     uint32(shoff),
		Ehsize:    HeaderSize,
		Shentsize: SectionHeaderSize,
		Shnum:     uint16(1 + len(attrSections)),
	}
	copy(hdr.Ident[:], "\x7fELF")
	hdr.Ident[4] = 1 // ELFCLASS32
	hdr.Ident[5] = 1 // ELFDATA2LSB
	hdr.Ident[6] = 1 // EV_CURRENT

	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, &hdr)

	for _, content := range attrSections {
		buf.Write(content)
	}

	_ = binary.Write(buf, binary.LittleEndian, &section{})
	for i, content := range attrSections {
		_ = binary.Write(buf, binary.LittleEndian, &section{
			Type:   SectionTypeARMAttributes,
			Offset: uint32(offsets[i]),
			Size:   uint32(len(content)),
		})
	}

	return buf.Bytes()
}
