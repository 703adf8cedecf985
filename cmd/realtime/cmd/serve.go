package cmd

import (
	"fmt"
	"net/http"
	_ "net/http/pprof" //ok in production https://medium.com/google-cloud/continuous-profiling-of-go-programs-96d4416af77b
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hackfest/realtime/internal/relay"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the realtime notification service",
	Long: `Serve runs the websocket gateway and notify API. Set parameters
with environment variables, for example:

export REALTIME_AUDIENCE=https://realtime.example.org
export REALTIME_LOG_LEVEL=warn
export REALTIME_LOG_FORMAT=json
export REALTIME_LOG_FILE=/var/log/realtime/realtime.log
export REALTIME_PORT=3001
export REALTIME_PORT_PROFILE=6061
export REALTIME_PROFILE=true
export REALTIME_SECRET=somesecret
realtime serve
`,
	Run: func(cmd *cobra.Command, args []string) {

		viper.SetEnvPrefix("REALTIME")
		viper.AutomaticEnv()

		viper.SetDefault("audience", "") //so we can check it's been provided
		viper.SetDefault("log_file", "stdout")
		viper.SetDefault("log_format", "json")
		viper.SetDefault("log_level", "warn")
		viper.SetDefault("port", 3001)
		viper.SetDefault("port_profile", 6061)
		viper.SetDefault("profile", false)
		viper.SetDefault("secret", "") //so we can check it's been provided

		audience := viper.GetString("audience")
		logFile := viper.GetString("log_file")
		logFormat := viper.GetString("log_format")
		logLevel := viper.GetString("log_level")
		port := viper.GetInt("port")
		portProfile := viper.GetInt("port_profile")
		profile := viper.GetBool("profile")
		secret := viper.GetString("secret")

		// Sanity checks
		ok := true

		if audience == "" {
			fmt.Println("You must set REALTIME_AUDIENCE")
			ok = false
		}

		if secret == "" {
			fmt.Println("You must set REALTIME_SECRET")
			ok = false
		}

		if !ok {
			os.Exit(1)
		}

		// set up logging
		switch strings.ToLower(logLevel) {
		case "trace":
			log.SetLevel(log.TraceLevel)
		case "debug":
			log.SetLevel(log.DebugLevel)
		case "info":
			log.SetLevel(log.InfoLevel)
		case "warn":
			log.SetLevel(log.WarnLevel)
		case "error":
			log.SetLevel(log.ErrorLevel)
		case "fatal":
			log.SetLevel(log.FatalLevel)
		case "panic":
			log.SetLevel(log.PanicLevel)
		default:
			fmt.Println("REALTIME_LOG_LEVEL can be trace, debug, info, warn, error, fatal or panic but not " + logLevel)
			os.Exit(1)
		}

		switch strings.ToLower(logFormat) {
		case "json":
			log.SetFormatter(&log.JSONFormatter{})
		case "text":
			log.SetFormatter(&log.TextFormatter{})
		default:
			fmt.Println("REALTIME_LOG_FORMAT can be json or text but not " + logFormat)
			os.Exit(1)
		}

		if strings.ToLower(logFile) == "stdout" {

			log.SetOutput(os.Stdout)

		} else {

			file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err == nil {
				log.SetOutput(file)
			} else {
				log.Infof("Failed to log to %s, logging to default stderr", logFile)
			}
		}

		// Report useful info
		log.Infof("realtime version: %s", versionString())
		log.Infof("Audience: [%s]", audience)
		log.Infof("Log file: [%s]", logFile)
		log.Infof("Log format: [%s]", logFormat)
		log.Infof("Log level: [%s]", logLevel)
		log.Infof("Port: [%d]", port)
		log.Infof("Port for profile: [%d]", portProfile)
		log.Infof("Profiling is on: [%t]", profile)
		log.Debugf("Secret: [%s...%s]", secret[:4], secret[len(secret)-4:])

		// Optionally start the profiling server
		if profile {
			go func() {
				url := "localhost:" + strconv.Itoa(portProfile)
				err := http.ListenAndServe(url, nil)
				if err != nil {
					log.Errorf(err.Error())
				}
			}()
		}

		var wg sync.WaitGroup

		closed := make(chan struct{})

		c := make(chan os.Signal, 1)

		signal.Notify(c, os.Interrupt)

		go func() {
			for range c {
				close(closed)
				wg.Wait()
				os.Exit(0)
			}
		}()

		wg.Add(1)

		config := relay.Config{
			Port:     port,
			Audience: audience,
			Secret:   secret,
		}

		go relay.Relay(closed, &wg, config)

		wg.Wait()

	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
