package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "keyforge"

// Registry is the Prometheus registry every collector in this package
// registers against, and the one Handler serves over HTTP.
var Registry = prometheus.NewRegistry()
