package main

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type exporter struct {
	config      *Config
	runner      commandRunner
	perccliPath string
}

// metricsHandler serves GET /metrics?target=<name>. Unknown targets are
// rejected before any SSH activity; transport failures and an unusable
// controller dump return 502 with an empty body so the scraper records a
// failed scrape; anything below that degrades to a 200 with the metrics that
// could be produced.
func (e *exporter) metricsHandler(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	tcfg, ok := e.config.Targets[target]
	if !ok {
		log.Warnf("scrape for unknown target %q", target)
		http.Error(w, fmt.Sprintf("unknown target %q", target), http.StatusBadRequest)
		return
	}

	reports, err := e.collect(target, tcfg)
	if err != nil {
		log.WithField("target", target).Errorf("scrape failed: %v", err)
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	metrics := newPercMetrics()
	metrics.record(reports)
	promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// collect runs the controller dump plus per-drive SMART queries against one
// target and returns the normalized reports.
func (e *exporter) collect(target string, tcfg TargetConfig) ([]ControllerReport, error) {
	out, err := e.runner.Run(target, tcfg.Username, tcfg.Password, e.perccliCmd("/cALL show all J"))
	if err != nil {
		return nil, err
	}

	reports, skipped, err := parseReport(out)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.WithField("target", target).Warnf("skipped %d malformed controller section(s)", skipped)
	}

	for ri := range reports {
		rep := &reports[ri]
		if !isMegaRAID(rep.DriverName) {
			continue
		}
		for di := range rep.Drives {
			drive := &rep.Drives[di]
			out, err := e.runner.Run(target, tcfg.Username, tcfg.Password, e.perccliCmd(drive.Path+" show smart"))
			if err != nil {
				// The drive simply has no SMART series this scrape.
				log.WithField("target", target).Warnf("SMART query for %s failed: %v", drive.Path, err)
				continue
			}
			drive.SMART = parseSMARTBlob(extractSMARTBlob(out))
		}
	}

	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debug(spew.Sdump(reports))
	}
	return reports, nil
}

func (e *exporter) perccliCmd(args string) string {
	return fmt.Sprintf("cd %s && ./%s %s",
		filepath.Dir(e.perccliPath), filepath.Base(e.perccliPath), args)
}
