package service

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "karte"

// Result labels of record operation metrics
const (
	resultSuccess  = "success"
	resultInvalid  = "invalid"
	resultNotFound = "not_found"
	resultFailure  = "failure"
)

// Operation labels of record operation metrics
const (
	operationCreate     = "create"
	operationList       = "list"
	operationGet        = "get"
	operationGetForEdit = "get_for_edit"
	operationUpdate     = "update"
	operationDelete     = "delete"
)

// Metrics record service metrics
type Metrics struct {
	operations     *prometheus.CounterVec
	orphans        prometheus.Counter
	documentStatus *prometheus.CounterVec
}

/*
NewMetrics define the record service metrics

	@param registerer prometheus.Registerer - registry to install the metrics into
	@returns the metrics
*/
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "record_operations_total",
				Help:      "Visit record operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "orphan_documents_total",
			Help:      "Documents written whose record row could not be inserted",
		}),
		documentStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "document_status_total",
				Help:      "Presentation status of documents read for listing and editing",
			},
			[]string{"status"},
		),
	}

	for _, collector := range []prometheus.Collector{
		metrics.operations, metrics.orphans, metrics.documentStatus,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register record service metric [%w]", err)
		}
	}

	return metrics, nil
}

// OrphanDocuments the orphan documents counter
func (m *Metrics) OrphanDocuments() prometheus.Counter {
	return m.orphans
}

// DocumentStatus the document status counter of one status
func (m *Metrics) DocumentStatus(status DocumentStatus) prometheus.Counter {
	return m.documentStatus.WithLabelValues(string(status))
}

// Operations the operation counter of one operation and result
func (m *Metrics) Operations(operation, result string) prometheus.Counter {
	return m.operations.WithLabelValues(operation, result)
}

// observe count an operation outcome by the error it returned
func (m *Metrics) observe(operation string, err error) {
	result := resultSuccess
	switch {
	case err == nil:
	case IsValidationFailure(err):
		result = resultInvalid
	case isNotFound(err):
		result = resultNotFound
	default:
		result = resultFailure
	}
	m.operations.WithLabelValues(operation, result).Inc()
}
