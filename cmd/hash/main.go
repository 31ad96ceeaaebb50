// Package main is a utility for computing the content id of a local file the
// same way the server does: SHA-1 over the raw bytes, hex-encoded. Useful for
// checking whether an artifact is already stored (the content id is the blob
// key) and for verifying downloads against the X-Checksum-Sha1 header.
package main

import (
	"fmt"
	"os"

	"github.com/modvault/modvault/pkg/checksum"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <file> [file...]\n", os.Args[0])
		os.Exit(2)
	}

	for _, path := range os.Args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("%s  %s\n", checksum.SHA1Hex(data), path)
	}
}
