package filehandler

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
)

// RPM's on-disk layout: a 96-byte lead, then a signature header block,
// padded to an 8-byte boundary, then the main header block immediately
// followed by the compressed payload. Header blocks (signature and
// main) share one record format:
//
//	3-byte magic (0x8e 0xad 0xe8), 1-byte version, 4 reserved bytes,
//	4-byte big-endian index count, 4-byte big-endian store size,
//	then index-count * 16-byte index entries, then the data store.
//
// No RPM library exists anywhere in this module's dependency corpus,
// so this parser is hand-rolled against the public format description
// at https://rpm-software-management.github.io/rpm/manual/format.html
// rather than wired to a third-party package.
const (
	rpmLeadSize       = 96
	rpmHeaderMagicLen = 3
	rpmIndexEntrySize = 16

	// Signature tags this handler writes: RSA/DSA header-only digest
	// and PGP/GPG header+payload digest, mirroring the two segments
	// RPM's own sign tooling produces.
	rpmSigTagRSA = 268
	rpmSigTagPGP = 1002

	rpmBinType = 7
)

var rpmHeaderMagic = [3]byte{0x8e, 0xad, 0xe8}

type rpmHeaderBlock struct {
	raw     []byte // full encoded block: magic+version+reserved+nindex+hsize+index+store
	nextOff int    // offset in the source buffer immediately following this block
}

// parseRPMHeaderBlock reads one header record starting at off and
// returns its encoded bytes plus the offset of the byte right after it.
func parseRPMHeaderBlock(content []byte, off int) (rpmHeaderBlock, error) {
	const fixedLen = 3 + 1 + 4 + 4 + 4
	if off+fixedLen > len(content) {
		return rpmHeaderBlock{}, fmt.Errorf("filehandler: truncated rpm header at offset %d", off)
	}
	if !bytes.Equal(content[off:off+3], rpmHeaderMagic[:]) {
		return rpmHeaderBlock{}, fmt.Errorf("filehandler: bad rpm header magic at offset %d", off)
	}
	nindex := binary.BigEndian.Uint32(content[off+8 : off+12])
	hsize := binary.BigEndian.Uint32(content[off+12 : off+16])
	total := fixedLen + int(nindex)*rpmIndexEntrySize + int(hsize)
	if off+total > len(content) {
		return rpmHeaderBlock{}, fmt.Errorf("filehandler: rpm header at offset %d overruns file", off)
	}
	return rpmHeaderBlock{raw: content[off : off+total], nextOff: off + total}, nil
}

func align8(n int) int {
	if rem := n % 8; rem != 0 {
		return n + (8 - rem)
	}
	return n
}

// buildRPMHeaderBlock encodes a header record containing exactly the
// given tag/value pairs as opaque BIN entries, in the shape described
// above.
func buildRPMHeaderBlock(entries map[int32][]byte) []byte {
	tags := make([]int32, 0, len(entries))
	for tag := range entries {
		tags = append(tags, tag)
	}
	// deterministic order: ascending tag id
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && tags[j-1] > tags[j]; j-- {
			tags[j-1], tags[j] = tags[j], tags[j-1]
		}
	}

	var store bytes.Buffer
	index := make([]byte, 0, len(tags)*rpmIndexEntrySize)
	for _, tag := range tags {
		value := entries[tag]
		offset := store.Len()
		store.Write(value)
		entry := make([]byte, rpmIndexEntrySize)
		binary.BigEndian.PutUint32(entry[0:4], uint32(tag))
		binary.BigEndian.PutUint32(entry[4:8], rpmBinType)
		binary.BigEndian.PutUint32(entry[8:12], uint32(offset))
		binary.BigEndian.PutUint32(entry[12:16], uint32(len(value)))
		index = append(index, entry...)
	}

	var out bytes.Buffer
	out.Write(rpmHeaderMagic[:])
	out.WriteByte(0x01)
	out.Write(make([]byte, 4)) // reserved
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(tags)))
	out.Write(countBuf[:])
	binary.BigEndian.PutUint32(countBuf[:], uint32(store.Len()))
	out.Write(countBuf[:])
	out.Write(index)
	out.Write(store.Bytes())
	return out.Bytes()
}

// RPMHandler produces the two signed segments an RPM package needs
// (the header alone, and the header followed by the payload) and, on
// assemble, rewrites the package's signature header block with the
// two returned signatures.
type RPMHandler struct{}

// ValidateOptions implements OptionsValidator: RPM packages are only
// ever signed inline with a PGP key.
func (h *RPMHandler) ValidateOptions(options map[string]string) error {
	if options[OptionDetached] == "true" {
		return fmt.Errorf("filehandler: rpm file only supports inline signature")
	}
	if keyType := options[OptionKeyType]; keyType != "" && keyType != "pgp" {
		return fmt.Errorf("filehandler: rpm file only supports pgp signature")
	}
	return nil
}

type rpmLayout struct {
	lead       []byte
	sig        rpmHeaderBlock
	mainHeader rpmHeaderBlock
	payload    []byte
}

func parseRPM(content []byte) (rpmLayout, error) {
	if len(content) < rpmLeadSize {
		return rpmLayout{}, fmt.Errorf("filehandler: file too small to be an rpm package")
	}
	sig, err := parseRPMHeaderBlock(content, rpmLeadSize)
	if err != nil {
		return rpmLayout{}, err
	}
	mainOff := align8(sig.nextOff)
	mainHeader, err := parseRPMHeaderBlock(content, mainOff)
	if err != nil {
		return rpmLayout{}, err
	}
	return rpmLayout{
		lead:       content[:rpmLeadSize],
		sig:        sig,
		mainHeader: mainHeader,
		payload:    content[mainHeader.nextOff:],
	}, nil
}

// SplitData returns the main header alone, then the main header
// followed by the payload: the two byte ranges RPM's signature scheme
// signs independently.
func (h *RPMHandler) SplitData(_ context.Context, path string, _ map[string]string) ([][]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filehandler: read %s: %w", path, err)
	}
	layout, err := parseRPM(content)
	if err != nil {
		return nil, err
	}
	headerOnly := append([]byte(nil), layout.mainHeader.raw...)
	headerAndPayload := append(append([]byte(nil), layout.mainHeader.raw...), layout.payload...)
	return [][]byte{headerOnly, headerAndPayload}, nil
}

// AssembleData rebuilds the package with a freshly written signature
// header carrying the two returned signatures in place of whatever
// signature block the original package had.
func (h *RPMHandler) AssembleData(_ context.Context, path string, signatures [][]byte, _ map[string]string) error {
	if len(signatures) < 2 {
		return fmt.Errorf("filehandler: rpm assembly needs header and header+payload signatures")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("filehandler: read %s: %w", path, err)
	}
	layout, err := parseRPM(content)
	if err != nil {
		return err
	}

	newSig := buildRPMHeaderBlock(map[int32][]byte{
		rpmSigTagRSA: signatures[0],
		rpmSigTagPGP: signatures[1],
	})

	var out bytes.Buffer
	out.Write(layout.lead)
	out.Write(newSig)
	if pad := align8(out.Len()) - out.Len(); pad > 0 {
		out.Write(make([]byte, pad))
	}
	out.Write(layout.mainHeader.raw)
	out.Write(layout.payload)

	return os.WriteFile(path, out.Bytes(), 0o644)
}
