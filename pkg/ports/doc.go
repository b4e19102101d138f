// Package ports declares the interfaces the orchestration core uses to reach
// its collaborators: the reasoning service, the event bus, the research
// cache and the metrics exporter. Adapters under pkg/adapters implement them.
package ports
