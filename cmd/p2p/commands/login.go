package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tribpub/p2p-go/pkg/p2pclient"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		authURL  string
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to the Content Services API",
		Long:  "Authenticate with the login endpoint and store the returned token",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadCLIConfig()
			if err != nil {
				return err
			}

			if authURL == "" {
				authURL = viper.GetString("auth_url")
			}

			if authURL == "" {
				authURL = config.AuthURL
			}

			reader := bufio.NewReader(os.Stdin)

			if authURL == "" {
				fmt.Print("Auth endpoint: ")
				authURL, _ = reader.ReadString('\n')
				authURL = strings.TrimSpace(authURL)
			}

			if username == "" {
				fmt.Print("Username: ")
				username, _ = reader.ReadString('\n')
				username = strings.TrimSpace(username)
			}

			if password == "" {
				fmt.Print("Password: ")

				bytePassword, err := term.ReadPassword(int(syscall.Stdin))
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}

				password = string(bytePassword)

				fmt.Println()
			}

			user, err := p2pclient.Authenticate(context.Background(), authURL, username, password)
			if err != nil {
				return err
			}

			config.AuthURL = authURL
			config.Username = username

			if token := user.Str("access_token"); token != "" {
				config.Token = token
			}

			if api := viper.GetString("api"); api != "" {
				config.API = api
			}

			err = saveCLIConfig(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Printf("Successfully logged in as %s\n", username)

			return nil
		},
	}

	cmd.Flags().StringVar(&authURL, "auth-url", "", "login endpoint URL")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username for authentication")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password for authentication")

	return cmd
}
