// metrics.go — Prometheus метрики бизнес-операций API-ETL.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// loginsTotal — попытки входа по исходу.
	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_logins_total",
			Help: "Количество попыток входа по исходу",
		},
		[]string{"outcome"},
	)

	// reportsIngestedTotal — принятые отчёты по виду детализации.
	reportsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_reports_ingested_total",
			Help: "Количество принятых отчётов ETL по виду детализации",
		},
		[]string{"kind"},
	)

	// acknowledgmentsTotal — подтверждения критических отчётов по исходу.
	acknowledgmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_acknowledgments_total",
			Help: "Количество подтверждений критических отчётов (created, already)",
		},
		[]string{"outcome"},
	)
)
