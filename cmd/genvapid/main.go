// Command genvapid prints a fresh VAPID key pair as .env lines.
package main

import (
	"flag"
	"fmt"

	"kavyalok/logger"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	subject := flag.String("subject", "mailto:admin@kavyalok.in", "contact address sent with every push")
	flag.Parse()

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to generate VAPID keys")
	}

	fmt.Println("# Add these to your .env file")
	fmt.Printf("VAPID_PUBLIC_KEY=%s\n", publicKey)
	fmt.Printf("VAPID_PRIVATE_KEY=%s\n", privateKey)
	fmt.Printf("VAPID_SUBJECT=%s\n", *subject)
}
