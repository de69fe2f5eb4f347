package filehandler

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
)

// Kernel modules carry their signature as a trailer block described by
// https://git.kernel.org/pub/scm/linux/kernel/git/stable/linux.git/tree/scripts/sign-file.c
const (
	kernelModuleExtension = ".p7s"
	pkeyIDPKCS7           = byte(2)
	magicNumber           = "~Module signature appended~\n"
	magicNumberSize       = 28
	moduleSignatureSize   = 40 // 12-byte struct + magicNumberSize
)

// moduleSignature is the fixed-size trailer struct sign-file.c appends
// after the signature bytes. algo/hash/signer/key-id are always zero
// here: this module signs with a single key identified out of band by
// the caller, so the kernel's own signer-name/key-id lookup fields are
// left unused, matching the zero values original_source's
// ModuleSignature::new always writes.
type moduleSignature struct {
	Algo       byte
	Hash       byte
	IDType     byte
	SignerLen  byte
	KeyIDLen   byte
	Pad        [3]byte
	SigLen     uint32
}

func newModuleSignature(sigLen uint32) moduleSignature {
	return moduleSignature{IDType: pkeyIDPKCS7, SigLen: sigLen}
}

func (m moduleSignature) encode() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, m)
	return buf.Bytes()
}

func decodeModuleSignature(b []byte) (moduleSignature, error) {
	var m moduleSignature
	if err := binary.Read(bytes.NewReader(b), binary.BigEndian, &m); err != nil {
		return moduleSignature{}, fmt.Errorf("filehandler: decode module signature: %w", err)
	}
	return m, nil
}

// KernelModuleHandler signs a .ko file either as a detached PKCS7
// blob or, when the module is unsigned, inline by appending the
// signature and its trailer directly to the module.
type KernelModuleHandler struct{}

// ValidateOptions implements OptionsValidator: kernel modules only
// sign under an x509 end-entity key with CMS or raw PKCS7.
func (h *KernelModuleHandler) ValidateOptions(options map[string]string) error {
	if keyType := options[OptionKeyType]; keyType != "" && keyType != "x509" {
		return fmt.Errorf("filehandler: kernel module file only supports x509 signature")
	}
	if signType := options[OptionSignType]; signType != "" && signType != "cms" && signType != "pkcs7" {
		return fmt.Errorf("filehandler: kernel module file only supports cms or pkcs7 sign type")
	}
	return nil
}

// rawContent returns the module bytes to sign, stripping any existing
// signature trailer first. A detached-signature request against an
// already-signed module is rejected: re-signing in place would leave
// two trailers and break verification.
func (h *KernelModuleHandler) rawContent(path string, options map[string]string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filehandler: read %s: %w", path, err)
	}
	if len(content) <= moduleSignatureSize {
		return content, nil
	}

	ending := content[len(content)-magicNumberSize:]
	if string(ending) != magicNumber {
		return content, nil
	}

	meta := content[len(content)-moduleSignatureSize : len(content)-magicNumberSize]
	sig, err := decodeModuleSignature(meta)
	if err != nil {
		return nil, err
	}
	if len(content) < moduleSignatureSize+int(sig.SigLen) {
		return nil, fmt.Errorf("filehandler: invalid kernel module signature size found")
	}
	if options[OptionDetached] == "true" {
		return nil, fmt.Errorf("filehandler: already signed kernel module file doesn't support detached signature")
	}
	return content[:len(content)-moduleSignatureSize-int(sig.SigLen)], nil
}

func (h *KernelModuleHandler) SplitData(_ context.Context, path string, options map[string]string) ([][]byte, error) {
	content, err := h.rawContent(path, options)
	if err != nil {
		return nil, err
	}
	return [][]byte{content}, nil
}

func (h *KernelModuleHandler) AssembleData(_ context.Context, path string, signatures [][]byte, options map[string]string) error {
	if len(signatures) == 0 {
		return fmt.Errorf("filehandler: no signature to assemble for %s", path)
	}
	signature := signatures[0]

	if options[OptionDetached] == "true" {
		return os.WriteFile(path+kernelModuleExtension, signature, 0o644)
	}

	raw, err := h.rawContent(path, map[string]string{})
	if err != nil {
		return err
	}
	var out bytes.Buffer
	out.Write(raw)
	out.Write(signature)
	trailer := newModuleSignature(uint32(len(signature)))
	out.Write(trailer.encode())
	out.WriteString(magicNumber)
	return os.WriteFile(path, out.Bytes(), 0o644)
}
