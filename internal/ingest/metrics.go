package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	readingsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carbonseed_readings_ingested_total",
		Help: "Sensor readings persisted, labelled by ingest source.",
	}, []string{"source"})

	readingsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carbonseed_readings_rejected_total",
		Help: "Sensor readings rejected before persistence.",
	}, []string{"reason"})

	alertsTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carbonseed_alerts_triggered_total",
		Help: "Alerts created by the threshold engine, labelled by severity.",
	}, []string{"severity"})
)
