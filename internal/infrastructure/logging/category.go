package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Relay           Category = "Relay"
	Mongo           Category = "Mongo"
	RabbitMQ        Category = "RabbitMQ"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
)

const (
	// General
	Startup      SubCategory = "Startup"
	Shutdown     SubCategory = "Shutdown"
	RateLimiting SubCategory = "RateLimiting"

	// Relay
	Session   SubCategory = "Session"
	Registry  SubCategory = "Registry"
	Broadcast SubCategory = "Broadcast"
	Reaper    SubCategory = "Reaper"

	// Persistence / messaging
	Persistence     SubCategory = "Persistence"
	ExternalService SubCategory = "ExternalService"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	RoomID       ExtraKey = "RoomId"
	MemberUID    ExtraKey = "MemberUid"
	FrameType    ExtraKey = "FrameType"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	ErrorMessage ExtraKey = "ErrorMessage"
)
