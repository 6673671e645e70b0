package main

import (
	"fmt"
	"log"
	"os"

	"github.com/falconops/pushhosts/internal/falcon"
	"github.com/falconops/pushhosts/internal/push"
	"github.com/spf13/cobra"
)

var (
	clientID     string
	clientSecret string
	scopeKind    string
	scopeID      string
	hostsFile    string
	baseURL      string
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.LUTC)
	log.SetOutput(os.Stdout)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pushhosts",
	Short: "Push a HOSTS file to Windows endpoints over RTR",
	Long: `pushhosts replaces the Windows HOSTS file on every endpoint in a CID or
host group. It backs up the existing file under a timestamped name, uploads
the staged replacement from the RTR put-file repository, fixes its ACL, and
flushes the local DNS cache.

The replacement file must already be uploaded to the put-file repository;
--hosts_file identifies it by SHA-256.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := push.ParseScope(scopeKind, scopeID)
		if err != nil {
			return err
		}

		client, err := falcon.New(falcon.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			BaseURL:      baseURL,
		})
		if err != nil {
			return err
		}

		log.Print("Authenticating to API")

		return push.Run(cmd.Context(), client, scope, hostsFile)
	},
}

func init() {
	rootCmd.Flags().StringVar(&clientID, "falcon_client_id", os.Getenv("FALCON_CLIENT_ID"), "CrowdStrike Falcon API Client ID")
	rootCmd.Flags().StringVar(&clientSecret, "falcon_client_secret", os.Getenv("FALCON_CLIENT_SECRET"), "CrowdStrike Falcon API Client Secret")
	rootCmd.Flags().StringVar(&scopeKind, "scope", "", "Which hosts to change, can be 'cid' or 'hostgroup'")
	rootCmd.Flags().StringVar(&scopeID, "scope_id", "", "CID or Host Group ID")
	rootCmd.Flags().StringVar(&hostsFile, "hosts_file", "", "SHA-256 of the staged HOSTS file in the put-file repository")
	rootCmd.Flags().StringVarP(&baseURL, "base_url", "b", "auto", "CrowdStrike base URL or region alias (only required for GovCloud, pass usgov1)")

	for _, flag := range []string{"scope", "scope_id", "hosts_file"} {
		if err := rootCmd.MarkFlagRequired(flag); err != nil {
			panic(err)
		}
	}
}
