package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
)

func main() {
	var out string
	flag.StringVarP(&out, "out", "o", "", "write the key to this file in solana-keygen format")
	flag.Parse()

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		panic(err)
	}
	fmt.Println("Public key:", key.PublicKey())

	if out == "" {
		fmt.Println("Private key:", key)
		return
	}
	if err := writeKeygenFile(out, key); err != nil {
		panic(err)
	}
	fmt.Println("Written to:", out)
}

// writeKeygenFile stores the key as the json byte array solana-keygen uses
func writeKeygenFile(path string, key solana.PrivateKey) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("%s already exists", path)
	}
	values := make([]int, len(key))
	for i, b := range key {
		values[i] = int(b)
	}
	content, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, content, 0o600), "failed to write key file")
}
