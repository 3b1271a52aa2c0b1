package tenantcmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toke-hq/toke-backend/platform/go/signing"
)

// Command groups tenant directory helpers. All of them talk to the
// master API with signed requests, never to the database directly.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant directory management (register/list/deactivate)",
	}

	cmd.AddCommand(registerCommand())
	cmd.AddCommand(listCommand())
	cmd.AddCommand(deactivateCommand())
	return cmd
}

type clientFlags struct {
	masterURL string
	secret    string
	apiKey    string
}

func (f *clientFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.masterURL, "master-url", "http://localhost:3001", "master API base URL")
	c.Flags().StringVar(&f.secret, "secret", "", "base64-encoded shared secret")
	c.Flags().StringVar(&f.apiKey, "api-key", "toke-cli", "api key identifying this CLI")
	_ = c.MarkFlagRequired("secret")
}

func (f *clientFlags) client() (*signing.Client, error) {
	signer, err := signing.NewSigner(f.secret)
	if err != nil {
		return nil, fmt.Errorf("init signer: %w", err)
	}
	return signing.NewClient(signing.ClientConfig{
		Signer: signer,
		APIKey: f.apiKey,
	}), nil
}

func (f *clientFlags) call(cmd *cobra.Command, method, path string, payload any) error {
	client, err := f.client()
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	target := strings.TrimRight(f.masterURL, "/") + path

	req, err := http.NewRequestWithContext(cmd.Context(), method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call master api: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("master api returned %d: %s", resp.StatusCode, bytes.TrimSpace(out))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		pretty.Write(out)
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}

func registerCommand() *cobra.Command {
	var (
		flags       clientFlags
		reference   string
		subdomain   string
		displayName string
	)

	c := &cobra.Command{
		Use:   "register",
		Short: "Register a tenant in the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.call(cmd, http.MethodPost, "/api/v1/tenants", map[string]string{
				"reference":   reference,
				"subdomain":   subdomain,
				"displayName": displayName,
			})
		},
	}

	flags.register(c)
	c.Flags().StringVar(&reference, "reference", "", "stable tenant reference")
	c.Flags().StringVar(&subdomain, "subdomain", "", "tenant API subdomain")
	c.Flags().StringVar(&displayName, "display-name", "", "human-readable tenant name")
	_ = c.MarkFlagRequired("reference")
	_ = c.MarkFlagRequired("subdomain")
	_ = c.MarkFlagRequired("display-name")

	return c
}

func listCommand() *cobra.Command {
	var (
		flags      clientFlags
		activeOnly bool
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List directory entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/tenants"
			if activeOnly {
				path += "?active=true"
			}
			return flags.call(cmd, http.MethodGet, path, nil)
		},
	}

	flags.register(c)
	c.Flags().BoolVar(&activeOnly, "active", false, "only list active tenants")

	return c
}

func deactivateCommand() *cobra.Command {
	var flags clientFlags

	c := &cobra.Command{
		Use:   "deactivate <reference>",
		Short: "Deactivate a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.call(cmd, http.MethodPost, "/api/v1/tenants/"+args[0]+"/deactivate", nil)
		},
	}

	flags.register(c)
	return c
}
