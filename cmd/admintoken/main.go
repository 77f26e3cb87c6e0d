// Command admintoken mints an operator bearer token for the admin endpoints.
// Run it with the same ADMIN_JWT_SECRET the engine was started with.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"bird-board/internal/middleware"
)

func main() {
	operator := flag.String("operator", "", "operator name to embed as the token subject")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_JWT_SECRET is not set")
		os.Exit(1)
	}
	if *operator == "" {
		fmt.Fprintln(os.Stderr, "usage: admintoken -operator <name>")
		os.Exit(1)
	}

	token, err := middleware.GenerateToken(*operator, secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token generation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
