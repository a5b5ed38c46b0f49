// Package cache stores conversion results on disk, addressed by digest.
//
// Values are encoded as canonical CBOR inside a record that repeats the key,
// so a file that was moved or truncated is treated as a miss rather than
// returned. Writes are atomic; concurrent writers of the same key store
// identical bytes.
package cache
