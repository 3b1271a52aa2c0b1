package signcmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/toke-hq/toke-backend/platform/go/signing"
)

// Command emits signature headers for manual calls against the APIs.
func Command() *cobra.Command {
	var (
		secret string
		apiKey string
	)

	c := &cobra.Command{
		Use:   "sign",
		Short: "Produce signature headers for a curl call against toke APIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := signing.NewSigner(secret)
			if err != nil {
				return fmt.Errorf("init signer: %w", err)
			}

			signature, timestamp := signer.Sign(apiKey)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", signing.HeaderAPIKey, apiKey)
			fmt.Fprintf(out, "%s: %s\n", signing.HeaderTimestamp, strconv.FormatInt(timestamp, 10))
			fmt.Fprintf(out, "%s: %s\n", signing.HeaderSignature, signature)
			return nil
		},
	}

	c.Flags().StringVar(&secret, "secret", "", "base64-encoded shared secret")
	c.Flags().StringVar(&apiKey, "api-key", "", "api key to sign for")
	_ = c.MarkFlagRequired("secret")
	_ = c.MarkFlagRequired("api-key")

	return c
}
