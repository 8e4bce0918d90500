package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// keygen prints a new lifecycle secret: the symmetric HMAC/AES key this
// gateway uses to sign tokens and encrypt HttpSecrets (the internal
// HS-512 issuer uses the secret of its own MYCELIUM_ISSUERS_JSON entry)
// -- generated once, rotated by redeploying with a new value.
func main() {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		fmt.Printf("failed to generate key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("--- copy below to your environment ---")
	fmt.Printf("MYCELIUM_LIFECYCLE_SECRET=%s\n", hex.EncodeToString(key))
	fmt.Println("---------------------------------------")
}
