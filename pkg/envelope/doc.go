// Package envelope implements the two ciphertext formats stored by passy.
//
// Personal secrets and wrapped private keys use a symmetric envelope
// (NaCl secretbox):
//
//	[nonce 24][ciphertext+tag]
//
// Team secrets use a sender-anonymous fan-out envelope (NaCl box with a
// fresh ephemeral key pair per message):
//
//	[ephemeral public key 32][nonce 24][ciphertext+tag]
//
// Both layouts are part of the storage format and must stay stable.
// Blobs travel as standard base64 strings. Any authentication failure,
// including truncated input, is reported as ErrDecryptionFailure.
package envelope
