// Package filehandler implements the per-file-format split/assemble
// logic the signing pipeline drives: each handler knows how to carve
// the bytes a remote key actually signs out of a file, and how to
// write the returned signature(s) back.
package filehandler

import (
	"fmt"

	"github.com/keyforge-project/keyforge/client"
	"github.com/keyforge-project/keyforge/client/pipeline"
)

// Sign option keys shared across handlers, mirroring the option names
// the CLI's add command populates on a SignIdentity.
const (
	OptionDetached = "detached"
	OptionKeyType  = "key_type"
	OptionSignType = "sign_type"
)

// OptionsValidator is an optional capability a FileHandler can
// implement when some sign option combinations are invalid for its
// format (a checksum file can't be signed in CMS with an x509 key, a
// kernel module can't take a detached signature once already signed).
// A caller checks for it before splitting; a handler with no
// constraints simply doesn't implement it.
type OptionsValidator interface {
	ValidateOptions(options map[string]string) error
}

// Factory resolves the filehandler.FileHandler for a client.FileType
// and satisfies pipeline.HandlerFactory structurally.
type Factory struct {
	rpm          *RPMHandler
	checksum     *ChecksumHandler
	generic      *GenericHandler
	kernelModule *KernelModuleHandler
	efi          *EFIHandler
}

// NewFactory builds a Factory with one instance of every format
// handler. Handlers are stateless, so sharing instances across
// identities is safe under concurrent pipeline stages.
func NewFactory() *Factory {
	return &Factory{
		rpm:          &RPMHandler{},
		checksum:     &ChecksumHandler{},
		generic:      &GenericHandler{},
		kernelModule: &KernelModuleHandler{},
		efi:          &EFIHandler{},
	}
}

// Get implements pipeline.HandlerFactory. IMA support is reserved:
// original_source's ima.rs keys its signature header off a
// subject-key-id key attribute this module's key attribute set
// doesn't populate yet, so FileTypeIMA resolves to an error rather
// than a half-working handler.
func (f *Factory) Get(fileType client.FileType) (pipeline.FileHandler, error) {
	switch fileType {
	case client.FileTypeRPM:
		return f.rpm, nil
	case client.FileTypeChecksum:
		return f.checksum, nil
	case client.FileTypeGeneric:
		return f.generic, nil
	case client.FileTypeKernelModule:
		return f.kernelModule, nil
	case client.FileTypeEFI:
		return f.efi, nil
	default:
		return nil, fmt.Errorf("filehandler: no handler registered for file type %q", fileType)
	}
}
