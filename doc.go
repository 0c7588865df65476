// Package envmeta manages the metadata envelope of an encrypted structured-data
// document: which recipients hold a wrapped copy of the document's data key, the
// integrity code over the encrypted payload, versioning, and the rules deciding
// which fields of the document are encrypted.
//
// The envelope lives under the "sops" key of the document and round-trips
// losslessly between its decoded record form and the Metadata entity, so a file
// can be read, partially rewritten, and written back without corrupting fields
// this library does not understand.
//
// # Quick Start
//
// Construct a fresh envelope for a new document:
//
//	meta, err := envmeta.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	meta.AddKeyWrapping(envmeta.BackendAge, recipient, wrappedKey)
//	meta.SetMAC(mac)
//	meta.RefreshTimestamp()
//	record := meta.ToRecord() // merge under "sops" and encode
//
// Or probe a decoded document for an existing envelope:
//
//	meta, ok, err := envmeta.FromRecord(doc[envmeta.EnvelopeKey])
//	if err != nil {
//	    return err // envelope present but malformed
//	}
//	if !ok {
//	    // document carries no envelope
//	}
//
// # Encryption Scope
//
// Metadata owns the decision of whether a field name is encrypted. Four
// optional rules are consulted in precedence order: unencrypted suffix,
// encrypted suffix, unencrypted regex, encrypted regex. The default, with no
// rules configured beyond the standard "_unencrypted" suffix, is to encrypt:
//
//	meta.ShouldEncrypt("api_key")             // true
//	meta.ShouldEncrypt("api_key_unencrypted") // false
//
// Key-wrapping backends (age, AWS KMS, HashiCorp Vault Transit) live under
// providers/ and implement the KeyWrapper interface; the format package handles
// whole-document encryption and decryption on top of this one.
package envmeta
