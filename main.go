package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/common/version"
	log "github.com/sirupsen/logrus"
)

var (
	listenAddr  string
	configPath  string
	perccliPath string
	sshTimeout  time.Duration
	maxSessions int64
	debug       bool
)

func init() {
	flag.StringVar(&listenAddr, "listen", envOr("LISTEN_ADDRESS", ":10424"), "address to listen on")
	flag.StringVar(&configPath, "config", envOr("CONFIG_FILE_PATH", "/etc/perccli-exporter/config.yml"), "path to the targets config file")
	flag.StringVar(&perccliPath, "perccli-path", envOr("PERCCLI_PATH", "/opt/lsi/perccli/perccli"), "path to perccli on the target hosts")
	flag.DurationVar(&sshTimeout, "ssh-timeout", 30*time.Second, "timeout for each remote perccli invocation")
	flag.Int64Var(&maxSessions, "max-ssh-sessions", 4, "maximum concurrent SSH sessions")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	flag.Parse()
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	log.Infof("starting perccli-exporter: %s", version.Info())

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	log.Infof("loaded %d target(s) from %s", len(cfg.Targets), configPath)

	exp := &exporter{
		config:      cfg,
		runner:      newSSHRunner(sshTimeout, maxSessions),
		perccliPath: perccliPath,
	}

	http.HandleFunc("/metrics", exp.metricsHandler)
	http.HandleFunc("/", landingPage)

	log.Infof("listening on %s", listenAddr)
	if err := http.ListenAndServe(listenAddr, nil); err != nil {
		log.Fatal(err)
	}
}

func landingPage(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, `<html>
<head><title>PERC CLI Exporter</title></head>
<body>
<h1>PERC CLI Exporter</h1>
<p>%s</p>
<p><a href="/metrics?target=TARGET">Metrics</a></p>
</body>
</html>
`, version.Info())
}
