// Command webvhctl is a reference CLI over this module's did:webvh core:
// it creates DIDs and resolves them against a live HTTP origin. It has no
// update or deactivate subcommand.
// It exists to exercise resolver/fetch/ed25519suite end to end; none of
// the core packages import it.
//
// Grounded on cocoon/cmd/cocoon/main.go's urfave/cli/v2 app shape
// (EnvVars-tagged flags, godotenv/autoload for local .env files).
package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	_ "github.com/joho/godotenv/autoload"

	"github.com/didwebvh/webvh-go/builder"
	"github.com/didwebvh/webvh-go/ed25519suite"
	"github.com/didwebvh/webvh-go/fetch"
	"github.com/didwebvh/webvh-go/proof"
	"github.com/didwebvh/webvh-go/replay"
	"github.com/didwebvh/webvh-go/resolver"
	"github.com/didwebvh/webvh-go/webvhdoc"
)

func main() {
	app := &cli.App{
		Name:  "webvhctl",
		Usage: "create and resolve did:webvh identifiers",
		Commands: []*cli.Command{
			resolveCommand(),
			createCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		slog.Error("webvhctl failed", "error", err)
		os.Exit(1)
	}
}

// requestLogger tags every command invocation with a correlation id, the
// way cocoon's HTTP middleware tags every inbound request.
func requestLogger() *slog.Logger {
	return slog.Default().With("requestId", uuid.NewString())
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "resolve a did:webvh identifier from its log",
		ArgsUsage: "<did>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "version-id", EnvVars: []string{"WEBVH_VERSION_ID"}},
			&cli.IntFlag{Name: "version-number", EnvVars: []string{"WEBVH_VERSION_NUMBER"}},
			&cli.BoolFlag{Name: "fast", EnvVars: []string{"WEBVH_FAST"}},
		},
		Action: func(c *cli.Context) error {
			did := c.Args().First()
			if did == "" {
				return cli.Exit("resolve requires a did argument", 1)
			}
			logger := requestLogger()

			res := resolver.New(fetch.New(), ed25519suite.Verifier{}, resolver.WithLogger(logger))
			result, err := res.ResolveDIDFromLog(c.Context, did, replay.Options{
				TargetVersionID:     c.String("version-id"),
				TargetVersionNumber: c.Int("version-number"),
				FastResolution:      c.Bool("fast"),
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "create a did:webvh genesis entry from a private key and a document template",
		ArgsUsage: "<domain> <private-key-hex> <document-template.json>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 3 {
				return cli.Exit("create requires <domain> <private-key-hex> <document-template.json>", 1)
			}
			domain := c.Args().Get(0)
			keyHex := c.Args().Get(1)
			templatePath := c.Args().Get(2)

			raw, err := hex.DecodeString(keyHex)
			if err != nil || len(raw) != ed25519.PrivateKeySize {
				return cli.Exit("private-key-hex must be a 64-byte hex-encoded ed25519 private key", 1)
			}
			priv := ed25519.PrivateKey(raw)

			templateBytes, err := os.ReadFile(templatePath)
			if err != nil {
				return err
			}
			var doc map[string]any
			if err := json.Unmarshal(templateBytes, &doc); err != nil {
				return err
			}

			keyMultibase, err := proof.EncodeEd25519PublicKeyMultibase(priv.Public().(ed25519.PublicKey))
			if err != nil {
				return err
			}
			placeholderDID := "did:webvh:" + webvhdoc.Placeholder + ":" + domain
			signer := ed25519suite.NewSigner(priv, placeholderDID+"#"+keyMultibase)
			method := "did:webvh:1.0"

			res := resolver.New(fetch.New(), ed25519suite.Verifier{}, resolver.WithLogger(requestLogger()))
			result, err := res.CreateDID(c.Context, builder.CreateInput{
				Domain:   domain,
				Document: doc,
				Parameters: webvhdoc.Parameters{
					Method:     &method,
					UpdateKeys: []string{keyMultibase},
				},
				VersionTime: time.Now().UTC(),
				Signer:      signer,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, result.DID)
			return printJSON(map[string]any{
				"did":  result.DID,
				"doc":  result.Document,
				"meta": result.Metadata,
				"log":  result.Log,
			})
		},
	}
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(b))
	return nil
}
