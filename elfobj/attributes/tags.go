package attributes

import "fmt"

// Encoding selects how an attribute tag's value is laid out on the
// wire.
type Encoding uint8

const (
	// EncodingULEB128 marks a value encoded as a variable-length
	// unsigned integer.
	EncodingULEB128 Encoding = iota

	// EncodingNTBS marks a value encoded as a null-terminated byte
	// string.
	EncodingNTBS
)

// Tag identifies the semantic kind of the value that follows it in an
// aeabi attribute stream.
type Tag uint64

// Tags named by this tool. Only TagABIPCSWchar is semantically
// interpreted; the string tags are enumerated so their values can be
// skipped with the correct decoder.
const (
	TagCPURawName    Tag = 4
	TagCPUName       Tag = 5
	TagABIPCSWchar   Tag = 18
	TagCompatibility Tag = 32
	TagConformance   Tag = 67
)

// TagMetadata describes an attribute tag registered with the library.
type TagMetadata struct {
	// Name is the tag's name as given by the ARM ABI addenda.
	Name string

	// Encoding specifies the wire encoding of the tag's value.
	Encoding Encoding
}

// tagRegistry defines the lookup table that links a Tag to the
// TagMetadata describing it. Per the ARM ABI addenda these are the
// only string-encoded tags at or below 32, plus the one numeric tag
// this tool interprets; every other tag falls through to the parity
// convention in Tag.Encoding.
var tagRegistry = map[Tag]*TagMetadata{
	TagCPURawName:    {Name: "Tag_CPU_raw_name", Encoding: EncodingNTBS},
	TagCPUName:       {Name: "Tag_CPU_name", Encoding: EncodingNTBS},
	TagABIPCSWchar:   {Name: "Tag_ABI_PCS_wchar_t", Encoding: EncodingULEB128},
	TagCompatibility: {Name: "Tag_compatibility", Encoding: EncodingNTBS},
	TagConformance:   {Name: "Tag_conformance", Encoding: EncodingNTBS},
}

// Encoding returns the wire encoding of this tag's value.
//
// Unregistered tags follow the ARM convention: every tag at or below
// 32 is ULEB128, while tags above 32 are ULEB128 when even and NTBS
// when odd.
func (tag Tag) Encoding() Encoding {
	if meta := tagRegistry[tag]; meta != nil {
		return meta.Encoding
	}

	if tag > 32 && tag%2 == 1 {
		return EncodingNTBS
	}

	return EncodingULEB128
}

// Registered reports whether this tag has TagMetadata describing it.
func (tag Tag) Registered() bool {
	return tagRegistry[tag] != nil
}

// String returns the name of this Tag as described in its registered
// TagMetadata, or its numeric form when no metadata is registered.
func (tag Tag) String() string {
	if meta := tagRegistry[tag]; meta != nil {
		return meta.Name
	}

	return fmt.Sprintf("Tag_%d", uint64(tag))
}
