// Package checksum computes and compares the MD5 digests published in build
// manifests.
//
// MD5 is what the binaries host publishes; it is used for integrity only.
// Files are always hashed as streams so that memory use does not grow with
// file size.
package checksum
