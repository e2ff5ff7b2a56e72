package ruletypes

import "context"

// DataSource is the pluggable capability the core consumes for external
// lookups. Concrete transport (a database driver, a message broker client,
// a REST client) is an external collaborator per spec.md §1; the core only
// depends on this interface.
type DataSource interface {
	// Name uniquely identifies the data source within a registry.
	Name() string
	// SourceType classifies the data source (e.g. "dataset", "rest",
	// "database") and seeds the registry's type index.
	SourceType() string
	// Tags seeds the registry's tag index, in addition to SourceType and
	// the advertised DataType.
	Tags() []string
	// DataType advertises the shape of data this source returns.
	DataType() string
	// IsHealthy is polled by the registry's health monitor.
	IsHealthy(ctx context.Context) bool
	// Lookup retrieves a single record by key.
	Lookup(ctx context.Context, key string) (map[string]any, error)
	// Close releases any resources the data source holds.
	Close() error
}

// DataSourceRegistration holds a DataSource instance plus the latest
// observed healthy flag, owned exclusively by the registry (spec.md §3).
type DataSourceRegistration struct {
	Source  DataSource
	Healthy bool
}

// EventType is the closed set of registry event types, per spec.md §6.
type EventType string

const (
	EventRegistered     EventType = "REGISTERED"
	EventUnregistered   EventType = "UNREGISTERED"
	EventHealthRestored EventType = "HEALTH_RESTORED"
	EventHealthLost     EventType = "HEALTH_LOST"
)

// Event is a registry event record, per spec.md §6.
type Event struct {
	Type      EventType
	Name      string
	Timestamp int64 // unix millis
	Message   string
}

// Listener receives registry events. Registration events are delivered on
// the registering goroutine and health events on the health monitor's
// goroutine; deliveries are not serialized, so OnEvent may be called
// concurrently.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }
