package filehandler

import "fmt"

// IMA/EVM file signatures encode the signing key's subject-key-identifier
// into a binary header (see original_source's client/file_handler/ima.rs),
// which requires the data plane to expose a "subject_key" attribute this
// module's key attribute set does not populate. Reserved until that
// attribute exists rather than wired to a handler that would silently
// produce an unverifiable header.
var errIMAUnsupported = fmt.Errorf("filehandler: ima signing is not supported by this server")
