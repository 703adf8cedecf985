package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hackfest/realtime/internal/client"
)

// ClientOptions holds the demo client's configuration, loaded from
// REALTIME_CLIENT_<var> environment variables
type ClientOptions struct {
	URL        string `default:"ws://localhost:3001/ws"`
	Token      string
	Event      int64
	Judging    int64
	Submission int64
	Team       int64
}

// clientCmd runs a terminal notification feed against a running service,
// useful for demos and for checking a deployment end to end
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "subscribe to a live notification feed",
	Long: `Client connects to a realtime service and prints notifications as
they arrive, reconnecting automatically if the connection drops. Choose
scopes with environment variables, for example

export REALTIME_CLIENT_URL=ws://localhost:3001/ws
export REALTIME_CLIENT_TOKEN=$bearer
export REALTIME_CLIENT_EVENT=7
export REALTIME_CLIENT_SUBMISSION=42
realtime client
`,
	Run: func(cmd *cobra.Command, args []string) {

		var opts ClientOptions

		if err := envconfig.Process("realtime_client", &opts); err != nil {
			log.Fatal("Configuration Failed ", err.Error())
		}

		url := opts.URL
		if opts.Token != "" {
			url = url + "?token=" + opts.Token
		}

		c := client.New(url)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := c.Start(ctx); err != nil {
			fmt.Println("cannot connect: " + err.Error())
			os.Exit(1)
		}

		if opts.Event != 0 {
			if err := c.JoinEvent(opts.Event); err != nil {
				log.WithField("error", err).Error("joining event")
			}
		}

		if opts.Judging != 0 {
			if err := c.JoinJudging(opts.Judging); err != nil {
				log.WithField("error", err).Error("joining judging")
			}
		}

		if opts.Submission != 0 {
			if err := c.WatchSubmission(opts.Submission); err != nil {
				log.WithField("error", err).Error("watching submission")
			}
		}

		if opts.Team != 0 {
			if err := c.JoinTeam(opts.Team); err != nil {
				log.WithField("error", err).Error("joining team")
			}
		}

		q := client.NewQueue()
		defer q.Close()

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)

		for {
			select {
			case env := <-c.In:
				if q.Enqueue(env) {
					n := q.Items()[0]
					fmt.Printf("[%s] %s: %s\n", n.Category, n.Title, n.Message)
				}
			case <-interrupt:
				c.Stop()
				return
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(clientCmd)
}
