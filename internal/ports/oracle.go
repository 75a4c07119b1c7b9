package ports

import (
	"github.com/fermata-io/fermata/internal/domain"
)

// OraclePort is the opaque external decision-maker. Given accumulated
// state and a step's instructions it returns either a terminal answer or
// a named tool call. Transient failures are the caller's to retry; the
// engine never retries mid-step to avoid duplicate side effects.
type OraclePort = domain.OracleDecider
