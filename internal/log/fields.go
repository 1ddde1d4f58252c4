package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldOwner      = "owner"
	FieldCollection = "collection"
	FieldDocID      = "doc_id"
	FieldMonth      = "month"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldPageSize   = "page_size"
	FieldDirection  = "direction"
)

// Components defines standard component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStore     = "store"
	ComponentAuth      = "auth"
	ComponentDashboard = "dashboard"
	ComponentPager     = "pager"
	ComponentServices  = "services"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
)

// Operations defines standard operation names.
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpSubscribe = "subscribe"
	OpMirror    = "mirror"
	OpExport    = "export"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
