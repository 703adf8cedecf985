package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hackfest/realtime/internal/token"
)

// tokenCmd mints a bearer token for connecting to the gateway or for the
// CRUD layer to post domain events
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "realtime token generates a new bearer token",
	Long: `Set the operating parameters with environment variables, for example

export REALTIME_TOKEN_LIFETIME=3600
export REALTIME_TOKEN_CONNECT=true
export REALTIME_TOKEN_NOTIFY=false
export REALTIME_TOKEN_SECRET=somesecret
export REALTIME_TOKEN_SUBJECT=judge-alice
export REALTIME_TOKEN_AUDIENCE=https://realtime.example.org
bearer=$(realtime token)
`,

	Run: func(cmd *cobra.Command, args []string) {

		viper.SetEnvPrefix("REALTIME_TOKEN")
		viper.AutomaticEnv()

		viper.SetDefault("connect", "true")
		viper.SetDefault("notify", "false")

		lifetime := viper.GetInt64("lifetime")
		audience := viper.GetString("audience")
		secret := viper.GetString("secret")
		subject := viper.GetString("subject")
		connect := viper.GetBool("connect")
		notify := viper.GetBool("notify")

		// check inputs

		if lifetime == 0 {
			fmt.Println("REALTIME_TOKEN_LIFETIME not set")
			os.Exit(1)
		}
		if secret == "" {
			fmt.Println("REALTIME_TOKEN_SECRET not set")
			os.Exit(1)
		}
		if subject == "" {
			fmt.Println("REALTIME_TOKEN_SUBJECT not set")
			os.Exit(1)
		}
		if audience == "" {
			fmt.Println("REALTIME_TOKEN_AUDIENCE not set")
			os.Exit(1)
		}

		var scopes []string

		if connect {
			scopes = append(scopes, token.ScopeConnect)
		}

		if notify {
			scopes = append(scopes, token.ScopeNotify)
		}

		if !connect && !notify {
			fmt.Println("Neither connect nor notify scope: no point in a token.")
			os.Exit(1)
		}

		iat := time.Now().Unix() - 1 //ensure immediately usable
		nbf := iat
		exp := iat + lifetime

		bearer, err := token.Sign(token.New(audience, subject, scopes, iat, nbf, exp), secret)

		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		fmt.Println(bearer)
		os.Exit(0)

	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
