package elfobj

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/armtools/wchar-tag-helper/elfobj/attributes"
)

// sectionTypeARMAttributes is the processor-specific section type
// carrying ARM build attributes (SHT_ARM_ATTRIBUTES).
const sectionTypeARMAttributes = uint32(elf.SHT_LOPROC) + 3

var (
	elfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

	// ErrBadFormat is reported when the file isn't a 32-bit ARM ELF
	// object with a section header table this tool can walk.
	ErrBadFormat = attributes.ErrBadFormat
)

// Handle is the open object file being scanned. It is opened and
// closed by the caller, which owns it exclusively for the duration of
// one scan; Write is only used when patching.
type Handle = attributes.Handle

// fileHeader is the ELF32 file header (Elf32_Ehdr).
type fileHeader struct {
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

// sectionHeader is one ELF32 section header table entry (Elf32_Shdr).
// Only Type, Offset, and Size are interpreted.
type sectionHeader struct {
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

var sectionHeaderSize = uint16(binary.Size(sectionHeader{}))

// Finding is one occurrence of Tag_ABI_PCS_wchar_t, qualified by the
// index of the section header it was found under.
type Finding struct {
	// Section is the section header table index of the attributes
	// section containing this occurrence.
	Section int

	attributes.WcharTag
}

// Scan locates every ARM-attributes section of a 32-bit ARM ELF file
// and reports each Tag_ABI_PCS_wchar_t occurrence it finds.
//
// When replacement is non-nil (a value in 0..127, one ULEB128 byte)
// each occurrence is patched in place with a size-preserving one-byte
// overwrite. Occurrences whose current value doesn't fit one byte are
// reported with attributes.ErrPatchTooLarge and left untouched; any
// other failure aborts the scan of the whole file.
func Scan(h Handle, replacement *uint8) ([]Finding, error) {
	var hdr fileHeader
	if err := binary.Read(h, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read ELF header: %w", err)
	}

	switch {
	case !bytes.Equal(hdr.Ident[:4], elfMagic[:]):
		return nil, fmt.Errorf("%w: bad ELF magic", ErrBadFormat)

	case elf.Machine(hdr.Machine) != elf.EM_ARM:
		return nil, fmt.Errorf("%w: machine %s is not ARM", ErrBadFormat, elf.Machine(hdr.Machine))

	case hdr.Shoff == 0:
		return nil, fmt.Errorf("%w: file has no section header table", ErrBadFormat)

	case hdr.Shentsize != sectionHeaderSize:
		return nil, fmt.Errorf("%w: section header entry size is %d, expected %d", ErrBadFormat, hdr.Shentsize, sectionHeaderSize)
	}

	if _, err := h.Seek(int64(hdr.Shoff), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to section header table: %w", err)
	}

	var findings []Finding
	for i := 0; i < int(hdr.Shnum); i++ {
		var shdr sectionHeader
		if err := binary.Read(h, binary.LittleEndian, &shdr); err != nil {
			return nil, fmt.Errorf("read section header %d: %w", i, err)
		}

		if shdr.Type != sectionTypeARMAttributes {
			continue
		}

		// Decoding a section seeks all over the file, so the table
		// scan position is saved and restored around it.
		tablePos, err := h.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fmt.Errorf("remember section table position: %w", err)
		}

		if _, err = h.Seek(int64(shdr.Offset), io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek to attributes section %d: %w", i, err)
		}

		tags, err := attributes.ParseSection(h, int64(shdr.Size), replacement)
		if err != nil {
			return nil, fmt.Errorf("attributes section %d: %w", i, err)
		}

		for _, tag := range tags {
			findings = append(findings, Finding{Section: i, WcharTag: tag})
		}

		if _, err = h.Seek(tablePos, io.SeekStart); err != nil {
			return nil, fmt.Errorf("restore section table position: %w", err)
		}
	}

	return findings, nil
}
