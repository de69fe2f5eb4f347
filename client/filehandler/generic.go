package filehandler

import (
	"context"
	"fmt"
	"os"
)

const genericExtension = ".asc"

// GenericHandler signs an arbitrary file with a PGP key and writes
// the detached ASCII-armored signature next to the original.
type GenericHandler struct{}

// ValidateOptions implements OptionsValidator: generic files only
// support a detached PGP signature.
func (h *GenericHandler) ValidateOptions(options map[string]string) error {
	if options[OptionDetached] == "false" {
		return fmt.Errorf("filehandler: generic file only supports detached signature")
	}
	if keyType := options[OptionKeyType]; keyType != "" && keyType != "pgp" {
		return fmt.Errorf("filehandler: generic file only supports pgp key type")
	}
	return nil
}

func (h *GenericHandler) SplitData(_ context.Context, path string, _ map[string]string) ([][]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filehandler: read %s: %w", path, err)
	}
	return [][]byte{content}, nil
}

func (h *GenericHandler) AssembleData(_ context.Context, path string, signatures [][]byte, _ map[string]string) error {
	if len(signatures) == 0 {
		return fmt.Errorf("filehandler: no signature to assemble for %s", path)
	}
	return os.WriteFile(path+genericExtension, signatures[0], 0o644)
}
