// Package serialization reads and writes model weights in the SafeTensors
// format:
//
//	[8 bytes: header size N (uint64 LE)]
//	[N bytes: JSON header, space padded to a multiple of 8]
//	[tensor data: raw little-endian bytes]
//
// The header maps every tensor name to its dtype, shape and byte range
// inside the data section; the optional "__metadata__" entry holds string
// key/value pairs. Tensors are written in alphabetical order.
//
// Files written by this package carry a SHA-256 checksum of the data
// section in metadata, which the reader verifies when present. Files from
// other writers load without one.
//
// Example usage:
//
//	err := serialization.WriteFile("model.safetensors", model.StateDict(), map[string]string{"arch": "deepspeech2"})
//
//	f, err := serialization.ReadFile("model.safetensors", tensor.CPU)
//	err = model.LoadStateDict(f.Tensors)
package serialization
