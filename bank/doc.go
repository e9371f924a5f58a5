// Package bank implements the AURB audio resource bank format.
//
// A bank is a single seekable blob made of three regions:
//   - Header: 64 bytes, little-endian, starting with the "AURB" magic
//   - Index: back-to-back variable-length entries (26 bytes plus the UTF-8 name)
//   - Chunks: raw asset bytes, contiguous, in index order
//
// [Encode] builds a bank and its companion [Metadata] from in-memory assets.
// [Parse] decodes a blob into a read-only [Catalog] that retains the original
// buffer, so chunk bytes are sliced rather than copied.
package bank
