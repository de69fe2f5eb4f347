// Package client holds the types shared across the signing-client
// pipeline: the file/key type enums a sign request is built from, and
// the SignIdentity record that threads one file through every pipeline
// stage.
package client

import "fmt"

// FileType identifies which file handler a SignIdentity routes through.
type FileType string

const (
	FileTypeRPM           FileType = "rpm"
	FileTypeChecksum      FileType = "checksum"
	FileTypeKernelModule  FileType = "ko"
	FileTypeEFI           FileType = "efi"
	FileTypeGeneric       FileType = "generic"
)

// KeyType identifies which remote key family a SignIdentity signs under.
type KeyType string

const (
	KeyTypePGP  KeyType = "pgp"
	KeyTypeX509 KeyType = "x509"
)

// SignIdentity is one file's journey through the pipeline: fetched,
// split into signable segments, sent for remote signing, and
// reassembled. Err records a stage failure without aborting sibling
// identities in the same batch — each identity's fate is independent.
type SignIdentity struct {
	FilePath    string
	KeyType     KeyType
	FileType    FileType
	KeyID       string
	RawContent  [][]byte
	Signature   [][]byte
	SignOptions map[string]string
	Err         error
}

// New builds a SignIdentity ready for the splitter stage.
func New(fileType FileType, filePath string, keyType KeyType, keyID string, options map[string]string) *SignIdentity {
	return &SignIdentity{
		FileType:    fileType,
		FilePath:    filePath,
		KeyType:     keyType,
		KeyID:       keyID,
		SignOptions: options,
	}
}

// Failed reports whether an earlier stage recorded an error.
func (s *SignIdentity) Failed() bool { return s.Err != nil }

func (s *SignIdentity) String() string {
	return fmt.Sprintf("%s (key=%s type=%s)", s.FilePath, s.KeyID, s.FileType)
}
