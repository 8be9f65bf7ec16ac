package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"notelink/internal/auth"
)

func newHashKeyCmd(a *app) *cobra.Command {
	var (
		alias    string
		expires  string
		generate bool
	)
	cmd := &cobra.Command{
		Use:   "hash-key",
		Short: "Print an api keys file line for a new key",
		Long: `Reads an API key from the terminal without echo, or generates one with
--generate, and prints alias:argon2id-hash:expiry for the api keys file.`,
		// hashing never needs the notes config
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			alias = strings.TrimSpace(alias)
			if alias == "" || strings.Contains(alias, ":") {
				return errors.New("--alias is required and must not contain ':'")
			}
			expiry := time.Now().AddDate(1, 0, 0)
			if expires != "" {
				t, err := time.Parse("2006-01-02", expires)
				if err != nil {
					return fmt.Errorf("--expires: %w", err)
				}
				expiry = t
			}

			var key string
			var err error
			if generate {
				key, err = auth.GenerateKey()
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stderr, "key: %s\n", key)
			} else {
				key, err = promptKey(a)
				if err != nil {
					return err
				}
			}
			hash, err := auth.HashKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, auth.FormatAPIKeyLine(alias, hash, expiry))
			return nil
		},
	}
	cmd.Flags().StringVar(&alias, "alias", "", "name recorded with the key")
	cmd.Flags().StringVar(&expires, "expires", "", "expiry day YYYY-MM-DD (default one year from today)")
	cmd.Flags().BoolVar(&generate, "generate", false, "generate a random key instead of prompting")
	return cmd
}

func promptKey(a *app) (string, error) {
	f, ok := a.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", errors.New("stdin is not a terminal, use --generate")
	}
	read := func(prompt string) (string, error) {
		fmt.Fprint(a.stderr, prompt)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	key, err := read("API key: ")
	if err != nil {
		return "", err
	}
	confirm, err := read("Confirm: ")
	if err != nil {
		return "", err
	}
	if key != confirm {
		return "", errors.New("keys do not match")
	}
	return key, nil
}
