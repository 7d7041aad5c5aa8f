// Command transcoderd runs the transcoding daemon with the default
// configuration lookup. It is equivalent to `transcoder serve`.
package main

import (
	"context"
	"log"
	"os"

	"transcoder/internal/config"
	"transcoder/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load(os.Getenv("TRANSCODER_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("transcoderd: %v", err)
	}
}
