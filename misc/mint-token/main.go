package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"sky-trace/internal/modules/dialogue"
)

func main() {
	// Check that a secret and a session id were provided.
	if len(os.Args) < 3 {
		log.Fatal("Usage: go run main.go <jwt-secret> <session-id>")
	}

	secret := os.Args[1]
	sessionID := os.Args[2]

	// Mint a token valid for a day, same as the server does.
	token, err := dialogue.MintSessionToken([]byte(secret), sessionID, 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to mint token: %v", err)
	}

	// Print the token to the console. Handy for curl testing:
	//   curl -H "Authorization: Bearer $TOKEN" ...
	fmt.Println(token)
}
