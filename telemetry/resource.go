package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// createResource builds the OTel resource describing this process:
// service name and version from config, configured resource attributes
// (nested maps flattened to dotted keys, values run through environment
// expansion), plus detected host, process and SDK attributes.
func (m *Manager) createResource(ctx context.Context) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(m.config.ServiceName),
		semconv.ServiceVersion(m.config.ServiceVersion),
	}

	for key, value := range flattenMap(m.config.ResourceAttrs, "") {
		attrs = append(attrs, attribute.String(key, os.ExpandEnv(value)))
	}

	return resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
	)
}

// flattenMap turns {"deployment": {"environment": "test"}} into
// {"deployment.environment": "test"}. Non-string leaves are formatted
// with %v.
func flattenMap(m map[string]interface{}, prefix string) map[string]string {
	out := make(map[string]string)
	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		switch v := value.(type) {
		case string:
			out[fullKey] = v
		case map[string]interface{}:
			for nk, nv := range flattenMap(v, fullKey) {
				out[nk] = nv
			}
		default:
			out[fullKey] = fmt.Sprintf("%v", v)
		}
	}
	return out
}
