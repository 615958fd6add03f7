// cmd/trainerctl/main.go
// Admin tasks that run against the configured database and blob store.
//
// Usage:
//
//	go run ./cmd/trainerctl tables
//	go run ./cmd/trainerctl hash-passcode 'correct horse'
//	go run ./cmd/trainerctl generate 5f0c... --enhance
//	go run ./cmd/trainerctl domain add strongwithsam.com sam-rivera --primary
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
