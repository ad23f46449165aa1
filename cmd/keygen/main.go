package main

import (
	"fmt"
	"log"

	"github.com/teabranch/amazon-chat-completions-server/internal/auth"
)

func main() {
	key, err := auth.GenerateKey()
	if err != nil {
		log.Fatalf("failed to generate key: %v", err)
	}

	fmt.Println("Generated SERVER_API_KEY (save this, it will not be shown again):")
	fmt.Println()
	fmt.Println(key)
}
