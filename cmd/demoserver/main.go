// Command demoserver starts the demo storefront used by the example scenario.
// Usage: go run ./cmd/demoserver [port]
// Default port: 9999
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/raysh454/eyes/internal/demoserver"
)

func main() {
	cfg := demoserver.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	fmt.Println("===========================================")
	fmt.Println("   Demo Store - visual check demo")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Pages come in versions that can be switched on the fly,")
	fmt.Println("so consecutive scenario runs can match or differ.")
	fmt.Println()
	fmt.Printf("  POST http://localhost:%d/demo/bump-all     next version of every page\n", cfg.Port)
	fmt.Printf("  POST http://localhost:%d/demo/reset        back to v1\n", cfg.Port)
	fmt.Printf("  GET  http://localhost:%d/demo/get-versions current versions\n", cfg.Port)
	fmt.Println()

	server := demoserver.NewDemoServer(cfg)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
