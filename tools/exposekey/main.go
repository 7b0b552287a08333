package main

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage:", os.Args[0], "keyfile")
		os.Exit(1)
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(os.Args[1])
	if err != nil {
		panic(err)
	}
	fmt.Println("Public key:", key.PublicKey())
	fmt.Println("Private key:", key)
}
