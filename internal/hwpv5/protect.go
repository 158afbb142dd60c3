package hwpv5

import "github.com/hanpama/hwarang/internal/hwperr"

// CheckProtection gates decoding on the header flags. It never attempts
// decryption: password documents stop here, as do DRM and certificate
// encrypted documents whose keys are not in the file.
func CheckProtection(h FileHeader) error {
	p := h.Properties
	switch {
	case p.Encrypted():
		return hwperr.PasswordProtected()
	case p.DRM(), p.CertDRM():
		return hwperr.DecryptFailed("document is DRM protected")
	case p.CertEncrypted():
		return hwperr.DecryptFailed("document is encrypted with a public key certificate")
	}
	return nil
}
