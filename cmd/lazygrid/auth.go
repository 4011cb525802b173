package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rebeliceyang/lazygrid/internal/config"
	"github.com/rebeliceyang/lazygrid/internal/credentials"
	"github.com/rebeliceyang/lazygrid/internal/logger"
	"github.com/rebeliceyang/lazygrid/internal/provider/postgres"
)

// openCredentials returns nil when the keyring is disabled
func openCredentials(cfg *config.Config) *credentials.Store {
	if !cfg.State.Keyring {
		return nil
	}
	return credentials.NewStore()
}

// authHeader carries a stored bearer token for baseURL, if any
func authHeader(creds *credentials.Store, baseURL string) http.Header {
	if creds == nil {
		return nil
	}
	token, err := creds.Token(baseURL)
	if err != nil {
		if !errors.Is(err, credentials.ErrNotFound) {
			logger.Log.WithError(err).Warn("keyring unavailable, sending request without a token")
		}
		return nil
	}
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

// passwordLookup reads database passwords from the keyring. Keyring failures
// only warn so a .pgpass or trust setup still works.
func passwordLookup(creds *credentials.Store) postgres.PasswordFunc {
	if creds == nil {
		return nil
	}
	return func(host string, port int, database, user string) (string, error) {
		password, err := creds.Password(host, port, database, user)
		if err != nil {
			if !errors.Is(err, credentials.ErrNotFound) {
				logger.Log.WithError(err).Warn("keyring unavailable, connecting without a stored password")
			}
			return "", nil
		}
		return password, nil
	}
}

// readSecret takes the flag value, or the first line of stdin when it is empty
func readSecret(flag string, stdin io.Reader) (string, error) {
	if flag != "" {
		return flag, nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}
	return secret, nil
}

func NewAuthCommand(global *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Store REST tokens and database passwords in the OS keyring",
	}

	var token string
	setToken := &cobra.Command{
		Use:   "set-token <url>",
		Short: "Store a bearer token for every endpoint on the URL's origin",
		Example: `  lazygrid auth set-token https://api.example.com --token abc123
  echo abc123 | lazygrid auth set-token https://api.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(global); err != nil {
				return err
			}
			secret, err := readSecret(token, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return credentials.NewStore().SaveToken(args[0], secret)
		},
	}
	setToken.Flags().StringVar(&token, "token", "", "Token value (read from stdin when omitted)")

	deleteToken := &cobra.Command{
		Use:   "delete-token <url>",
		Short: "Remove the token stored for the URL's origin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(global); err != nil {
				return err
			}
			return credentials.NewStore().DeleteToken(args[0])
		},
	}

	var password string
	setPassword := &cobra.Command{
		Use:     "set-password <dsn>",
		Short:   "Store the password for a PostgreSQL connection target",
		Example: `  lazygrid auth set-password postgres://ann@localhost/shop --password s3cret`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(global); err != nil {
				return err
			}
			target, err := postgres.ParseTarget(args[0])
			if err != nil {
				return err
			}
			secret, err := readSecret(password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return credentials.NewStore().SavePassword(target.Host, target.Port, target.Database, target.User, secret)
		},
	}
	setPassword.Flags().StringVar(&password, "password", "", "Password (read from stdin when omitted)")

	deletePassword := &cobra.Command{
		Use:   "delete-password <dsn>",
		Short: "Remove the stored password for a PostgreSQL connection target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(global); err != nil {
				return err
			}
			target, err := postgres.ParseTarget(args[0])
			if err != nil {
				return err
			}
			return credentials.NewStore().DeletePassword(target.Host, target.Port, target.Database, target.User)
		},
	}

	cmd.AddCommand(setToken, deleteToken, setPassword, deletePassword)
	return cmd
}
