package main

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamespace = "megaraid"

// percMetrics is a request-local registry of the exported gauges. A fresh set
// is built per scrape so concurrent requests never share series state.
type percMetrics struct {
	registry *prometheus.Registry

	controllerInfo     *prometheus.GaugeVec
	controllerStatus   *prometheus.GaugeVec
	controllerTemp     *prometheus.GaugeVec
	driveStatus        *prometheus.GaugeVec
	driveTemp          *prometheus.GaugeVec
	driveSMART         *prometheus.GaugeVec
	virtualDriveStatus *prometheus.GaugeVec
	bbuHealth          *prometheus.GaugeVec
}

func newPercMetrics() *percMetrics {
	m := &percMetrics{registry: prometheus.NewRegistry()}
	factory := promauto.With(m.registry)

	m.controllerInfo = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricNamespace,
		Name:      "controller_info",
		Help:      "MegaRAID controller info",
	}, []string{"controller", "model", "serial", "fwversion"})
	m.controllerStatus = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricNamespace,
		Name:      "controller_status",
		Help:      "Controller status (1=Optimal, 0=Not Optimal)",
	}, []string{"controller"})
	m.controllerTemp = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricNamespace,
		Name:      "controller_temperature",
		Help:      "Controller temperature in Celsius",
	}, []string{"controller"})
	m.driveStatus = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricNamespace,
		Name:      "drive_status",
		Help:      "Physical drive status (1=Online, 0=Other)",
	}, []string{"controller", "drive"})
	m.driveTemp = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricNamespace,
		Name:      "drive_temp",
		Help:      "Physical drive temperature in Celsius",
	}, []string{"controller", "drive"})
	m.driveSMART = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricNamespace,
		Name:      "drive_smart",
		Help:      "Drive SMART attributes",
	}, []string{"controller", "drive", "attribute"})
	m.virtualDriveStatus = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricNamespace,
		Name:      "virtual_drive_status",
		Help:      "Virtual drive status (1=Optimal, 0=Other)",
	}, []string{"controller", "vd"})
	m.bbuHealth = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricNamespace,
		Name:      "bbu_health",
		Help:      "Battery Backup Unit health (1=Healthy, 0=Unhealthy)",
	}, []string{"controller"})

	return m
}

// record converts normalized reports into labeled gauges. Absent optional
// values (temperatures, BBU) produce no series at all rather than zeros.
func (m *percMetrics) record(reports []ControllerReport) {
	for _, rep := range reports {
		ctrl := strconv.Itoa(rep.Index)

		m.controllerInfo.WithLabelValues(ctrl, rep.Model, rep.Serial, rep.Firmware).Set(1)
		m.controllerStatus.WithLabelValues(ctrl).Set(rep.Status.gauge())
		if rep.Temperature != nil {
			m.controllerTemp.WithLabelValues(ctrl).Set(*rep.Temperature)
		}

		for _, drive := range rep.Drives {
			label := "Drive " + drive.Path
			m.driveStatus.WithLabelValues(ctrl, label).Set(drive.Status.gauge())
			if drive.Temperature != nil {
				m.driveTemp.WithLabelValues(ctrl, label).Set(*drive.Temperature)
			}
			for _, attr := range drive.SMART {
				m.driveSMART.WithLabelValues(ctrl, label, attr.Name).Set(attr.Value)
			}
		}

		for _, vd := range rep.VirtualDrives {
			m.virtualDriveStatus.WithLabelValues(ctrl, vd.ID).Set(vd.Status.gauge())
		}

		if rep.BBU != nil {
			health := 0.0
			if rep.BBU.Healthy {
				health = 1
			}
			m.bbuHealth.WithLabelValues(ctrl).Set(health)
		}
	}
}
