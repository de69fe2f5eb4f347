package filehandler

import (
	"context"
	"fmt"
	"os"
)

// checksumExtension is appended to the original file name to produce
// the detached armored-signature sidecar file.
const checksumExtension = ".asc"

// ChecksumHandler signs a checksum manifest (e.g. a SHA256SUMS file)
// by producing a detached signature written next to the original
// file. It never modifies the original.
type ChecksumHandler struct{}

// ValidateOptions implements OptionsValidator: a checksum file only
// ever carries a detached signature, and an x509 key must sign it
// under CMS rather than raw PKCS7.
func (h *ChecksumHandler) ValidateOptions(options map[string]string) error {
	if options[OptionDetached] == "false" {
		return fmt.Errorf("filehandler: checksum file only supports detached signature")
	}
	if options[OptionKeyType] == "x509" && options[OptionSignType] != "" && options[OptionSignType] != "cms" {
		return fmt.Errorf("filehandler: checksum file only supports x509 key with cms sign type")
	}
	return nil
}

// SplitData reads the whole manifest as a single segment to sign.
func (h *ChecksumHandler) SplitData(_ context.Context, path string, _ map[string]string) ([][]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filehandler: read %s: %w", path, err)
	}
	return [][]byte{content}, nil
}

// AssembleData writes the returned armored signature to path+".asc",
// leaving the original manifest untouched.
func (h *ChecksumHandler) AssembleData(_ context.Context, path string, signatures [][]byte, _ map[string]string) error {
	if len(signatures) == 0 {
		return fmt.Errorf("filehandler: no signature to assemble for %s", path)
	}
	return os.WriteFile(path+checksumExtension, signatures[0], 0o644)
}
