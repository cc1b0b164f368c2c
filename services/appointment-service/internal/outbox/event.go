package outbox

// Domain event types emitted by the appointment service. The Kafka topic
// name equals the event type.
const (
	EventCitaCreated       = "cita.created.v1"
	EventCitaStatusChanged = "cita.status_changed.v1"
	EventCitaDeleted       = "cita.deleted.v1"
)

// Event is the envelope written to the outbox table in the same transaction
// as the row change it describes.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
