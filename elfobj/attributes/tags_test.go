package attributes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagEncoding(t *testing.T) {
	// The enumerated string tags and the parity convention for
	// everything above 32 come straight from the ARM ABI addenda.
	assert.Equal(t, EncodingNTBS, TagCPURawName.Encoding(), "Tag_CPU_raw_name")
	assert.Equal(t, EncodingNTBS, TagCPUName.Encoding(), "Tag_CPU_name")
	assert.Equal(t, EncodingNTBS, TagCompatibility.Encoding(), "Tag_compatibility")
	assert.Equal(t, EncodingNTBS, TagConformance.Encoding(), "Tag_conformance")
	assert.Equal(t, EncodingULEB128, TagABIPCSWchar.Encoding(), "Tag_ABI_PCS_wchar_t")

	// Every unregistered tag at or below 32 is ULEB128, odd included.
	for tag := Tag(0); tag <= 32; tag++ {
		if tag.Registered() {
			continue
		}
		assert.Equal(t, EncodingULEB128, tag.Encoding(), "tag %d", tag)
	}

	assert.Equal(t, EncodingULEB128, Tag(34).Encoding(), "even tag above 32")
	assert.Equal(t, EncodingNTBS, Tag(35).Encoding(), "odd tag above 32")
	assert.Equal(t, EncodingULEB128, Tag(68).Encoding(), "even tag above 32")
	assert.Equal(t, EncodingNTBS, Tag(69).Encoding(), "odd tag above 32")
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "Tag_ABI_PCS_wchar_t", TagABIPCSWchar.String())
	assert.Equal(t, "Tag_CPU_name", TagCPUName.String())
	assert.Equal(t, "Tag_7", Tag(7).String())
}
