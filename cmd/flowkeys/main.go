// Command flowkeys manages the RSA key pair behind the encrypted Flow endpoint.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"flowgate/internal/flowcrypto"
	"flowgate/internal/messaging"
	"flowgate/internal/platform/config"
	"flowgate/internal/platform/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch args[0] {
	case "generate":
		return runGenerate(args[1:], out)
	case "upload":
		return runUpload(args[1:], out)
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", args[0])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: flowkeys <subcommand> [flags]

Subcommands:
  generate    Create an RSA key pair and print it as environment lines
  upload      Register the configured public key with the WhatsApp Cloud API

Run 'flowkeys <subcommand> --help' for subcommand flags.
`)
}

// runGenerate prints WHATSAPP_PRIVATE_KEY and WHATSAPP_PUBLIC_KEY as
// base64 PEM, the form the server reads from its environment.
func runGenerate(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	bits := flags.Int("bits", 2048, "RSA modulus size")
	passphrase := flags.String("passphrase", "", "encrypt the private key as PKCS#8 with this passphrase")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *bits < 2048 {
		return fmt.Errorf("--bits must be at least 2048, got %d", *bits)
	}

	key, err := flowcrypto.GenerateKey(*bits)
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}
	private, err := flowcrypto.EncodePrivateKey(key, *passphrase)
	if err != nil {
		return err
	}
	public, err := flowcrypto.EncodePublicKey(&key.PublicKey)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "WHATSAPP_PRIVATE_KEY=%s\n", base64.StdEncoding.EncodeToString([]byte(private)))
	fmt.Fprintf(out, "WHATSAPP_PUBLIC_KEY=%s\n", base64.StdEncoding.EncodeToString([]byte(public)))
	if *passphrase != "" {
		fmt.Fprintln(out, "# set WHATSAPP_PRIVATE_KEY_PASSPHRASE to the passphrase used above")
	}
	return nil
}

// runUpload sends WHATSAPP_PUBLIC_KEY (or --public-key) to the Cloud API
// using the server's WhatsApp credentials.
func runUpload(args []string, out io.Writer) error {
	cfg := config.FromEnv()
	flags := pflag.NewFlagSet("upload", pflag.ContinueOnError)
	publicKey := flags.String("public-key", cfg.WhatsApp.PublicKey, "base64 or PEM public key")
	flags.StringVar(&cfg.WhatsApp.PhoneNumberID, "phone-number-id", cfg.WhatsApp.PhoneNumberID, "business phone number id")
	if err := flags.Parse(args); err != nil {
		return err
	}

	pemText, err := flowcrypto.PublicKeyPEM(*publicKey)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
	client := messaging.New(cfg.WhatsApp, messaging.WithLogger(log))
	res, err := client.UploadPublicKey(ctx, pemText)
	if err != nil {
		return fmt.Errorf("uploading public key: %w", err)
	}
	fmt.Fprintf(out, "uploaded public key: %s\n", res.Data)
	return nil
}
