package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	AppKey       ContextKey = "app"
	PoolKey      ContextKey = "pool"
	TxKey        ContextKey = "tx"
	LoggerKey    ContextKey = "logger"
	ParamsKey    ContextKey = "params"
	TenantIDKey  ContextKey = "tenantID"
	ActorIDKey   ContextKey = "actorID"
	RequestStart ContextKey = "requestStart"
)

// Validate is the process-wide validator instance. DTOs register their
// struct tags against it via Validate.Struct.
var Validate = validator.New(validator.WithRequiredStructEnabled())
